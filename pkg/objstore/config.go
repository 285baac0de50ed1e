package objstore

import "time"

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds object store configuration.
type ClientConfig struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Bucket         string
	RequestTimeout time.Duration
}

// WithEndpoint sets a custom endpoint (MinIO or S3-compatible stores).
func WithEndpoint(endpoint string) ClientOption {
	return func(c *ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithRegion sets the region.
func WithRegion(region string) ClientOption {
	return func(c *ClientConfig) {
		c.Region = region
	}
}

// WithCredentials sets static credentials.
func WithCredentials(accessKey, secretKey string) ClientOption {
	return func(c *ClientConfig) {
		c.AccessKey = accessKey
		c.SecretKey = secretKey
	}
}

// WithSSL toggles TLS for custom endpoints.
func WithSSL(useSSL bool) ClientOption {
	return func(c *ClientConfig) {
		c.UseSSL = useSSL
	}
}

// WithBucket sets the bucket name.
func WithBucket(bucket string) ClientOption {
	return func(c *ClientConfig) {
		c.Bucket = bucket
	}
}

// WithRequestTimeout bounds each individual store call.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.RequestTimeout = timeout
	}
}
