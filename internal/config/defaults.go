package config

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Rasterizer backends.
const (
	BackendPoppler = "poppler"
	BackendPDFCPU  = "pdfcpu"
)

// Processing brokers.
const (
	BrokerMemory = "memory"
	BrokerAMQP   = "amqp"
)

// API environments.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

const (
	defaultDataDir = "~/.local/share/wizqueue"
	defaultLogDir  = "~/.local/state/wizqueue/logs"

	defaultAPIBind         = "127.0.0.1:3001"
	defaultShutdownTimeout = 5

	defaultSQLiteFile     = "wizqueue.db"
	defaultMaxOpenConns   = 10
	defaultConnectRetries = 10

	defaultMaxFileSize       = 10 * 1024 * 1024
	defaultRateLimit         = 10
	defaultRateWindowSeconds = 15 * 60

	defaultOllamaBaseURL     = "http://localhost:11434"
	defaultOllamaModel       = "llava:latest"
	defaultOllamaTimeout     = 120
	defaultOllamaTemperature = 0.1
	defaultOllamaTopP        = 0.9
	defaultOllamaRetries     = 3

	defaultPageConcurrency = 1

	defaultPdftoppmBinary = "pdftoppm"
	defaultRasterDPI      = 144
	defaultMaxWidth       = 2400
	defaultMaxHeight      = 3200

	defaultWorkers   = 2
	defaultQueueSize = 32
	defaultAMQPQueue = "wizqueue.invoices"

	defaultArchiveBucket = "wizqueue-invoices"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

var defaultAllowedTypes = []string{"application/pdf"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			Bind:                   defaultAPIBind,
			Environment:            EnvironmentDevelopment,
			ShutdownTimeoutSeconds: defaultShutdownTimeout,
		},
		Storage: Storage{
			Driver:         DriverSQLite,
			MaxOpenConns:   defaultMaxOpenConns,
			ConnectRetries: defaultConnectRetries,
		},
		Upload: Upload{
			MaxFileSize:       defaultMaxFileSize,
			AllowedTypes:      append([]string(nil), defaultAllowedTypes...),
			RateLimit:         defaultRateLimit,
			RateWindowSeconds: defaultRateWindowSeconds,
		},
		Ollama: Ollama{
			BaseURL:        defaultOllamaBaseURL,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultOllamaTimeout,
			Temperature:    defaultOllamaTemperature,
			TopP:           defaultOllamaTopP,
			RetryAttempts:  defaultOllamaRetries,
		},
		Extraction: Extraction{
			PageConcurrency: defaultPageConcurrency,
		},
		Rasterize: Rasterize{
			Backend:        BackendPoppler,
			PdftoppmBinary: defaultPdftoppmBinary,
			DPI:            defaultRasterDPI,
			MaxWidth:       defaultMaxWidth,
			MaxHeight:      defaultMaxHeight,
		},
		Processing: Processing{
			Workers:   defaultWorkers,
			QueueSize: defaultQueueSize,
			Broker:    BrokerMemory,
			AMQPQueue: defaultAMQPQueue,
		},
		Archive: Archive{
			Bucket: defaultArchiveBucket,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
