// Package config holds benio's configuration.
//
// Values are resolved in order: defaults, then the YAML file, then
// BENIO_* environment variables, then command-line flags applied by the
// caller.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("benio.yaml").
//	    Load()
package config

// Config is the complete configuration of one benio process.
type Config struct {
	Server  ServerConfig  `yaml:"server" env:"SERVER"`
	Client  ClientConfig  `yaml:"client" env:"CLIENT"`
	Log     LogConfig     `yaml:"log" env:"LOG"`
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ServerConfig configures `benio server`. Sizes are human-readable
// strings such as "4K" or "1GB".
type ServerConfig struct {
	Bind string `yaml:"bind" env:"BIND"`
	Port int    `yaml:"port" env:"PORT"`
	// Size is served when a request does not carry one, and is the size
	// of the generated data file.
	Size     string `yaml:"size" env:"SIZE"`
	Filename string `yaml:"filename" env:"FILENAME"`
	Bufsize  string `yaml:"bufsize" env:"BUFSIZE"`
	// Method is "name;key=value;...".
	Method   string `yaml:"method" env:"METHOD"`
	ZeroCopy bool   `yaml:"zerocopy" env:"ZEROCOPY"`
	// Accept stops the server after that many connections; 0 serves
	// until interrupted.
	Accept           int    `yaml:"accept" env:"ACCEPT"`
	Transport        string `yaml:"transport" env:"TRANSPORT"`
	Compress         bool   `yaml:"compress" env:"COMPRESS"`
	CompressionLevel string `yaml:"compression_level" env:"COMPRESSION_LEVEL"`
	Seed             string `yaml:"seed" env:"SEED"`
}

// ClientConfig configures `benio client`.
type ClientConfig struct {
	Addresses        []string `yaml:"addresses" env:"ADDRESSES"`
	Port             int      `yaml:"port" env:"PORT"`
	Bind             string   `yaml:"bind" env:"BIND"`
	Size             string   `yaml:"size" env:"SIZE"`
	Bufsize          string   `yaml:"bufsize" env:"BUFSIZE"`
	Cache            string   `yaml:"cache" env:"CACHE"`
	Method           string   `yaml:"method" env:"METHOD"`
	Transport        string   `yaml:"transport" env:"TRANSPORT"`
	Compress         bool     `yaml:"compress" env:"COMPRESS"`
	CompressionLevel string   `yaml:"compression_level" env:"COMPRESSION_LEVEL"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// json, console
	Format      string   `yaml:"format" env:"FORMAT"`
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

const DefaultPort = 8881

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             DefaultPort,
			Bufsize:          "4K",
			Method:           "raw",
			Transport:        "tcp",
			CompressionLevel: "default",
		},
		Client: ClientConfig{
			Port:             DefaultPort,
			Bufsize:          "4KB",
			Cache:            "512MB",
			Method:           "raw",
			Transport:        "tcp",
			CompressionLevel: "default",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Metrics: MetricsConfig{
			Namespace: "benio",
		},
	}
}
