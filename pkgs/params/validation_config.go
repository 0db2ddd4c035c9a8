package params

// ValidatorOption configures a SchemaValidator.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	maxSchemaSize  int // bytes of the encoded constraint schema
	maxSchemaDepth int // nested items/properties levels
	cacheSize      int // compiled schemas kept; 0 disables the cache
	assertFormat   bool
}

func defaultValidatorConfig() validatorConfig {
	return validatorConfig{
		maxSchemaSize:  64 * 1024,
		maxSchemaDepth: 10,
		cacheSize:      256,
		assertFormat:   true,
	}
}

// WithSchemaLimits bounds the encoded size in bytes and the nesting depth
// of the schema a parameter's constraints compile to.
func WithSchemaLimits(size, depth int) ValidatorOption {
	return func(c *validatorConfig) {
		c.maxSchemaSize = size
		c.maxSchemaDepth = depth
	}
}

// WithCacheSize sets how many compiled schemas are kept. Zero turns the
// cache off.
func WithCacheSize(n int) ValidatorOption {
	return func(c *validatorConfig) {
		c.cacheSize = n
	}
}

// WithoutFormatAssertion treats format constraints as annotations.
func WithoutFormatAssertion() ValidatorOption {
	return func(c *validatorConfig) {
		c.assertFormat = false
	}
}
