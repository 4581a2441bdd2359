package util

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPing/exchange/common"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"io/fs"
	"math"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultConfigFile is read if --config is not given
	DefaultConfigFile = "dping.json"
)

// Logger is the logger of the dping command
var Logger = logger.GetLogger("dping")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupExchangeFlags adds the exchange flags to a command. The keys of the config file
// and the environment variables use '_' instead of '-' (e.g. server_port, DPING_SERVER_PORT).
func SetupExchangeFlags(cmd *cobra.Command) {
	defaults := common.DefaultExchangeConfig()
	flags := cmd.PersistentFlags()

	key := "config"
	flags.String(key, DefaultConfigFile, WrapString("Path of the JSON config file. A missing file is ignored and the defaults are used"))

	key = "ip"
	flags.String(key, defaults.IP, WrapString("IP address the server listens on and the clients bind to"))

	key = "server-port"
	flags.Uint16(key, defaults.ServerPort, WrapString("Port the server listens on"))

	key = "client-port"
	flags.Uint16(key, defaults.ClientPort, WrapString("Local port of the first client, client i binds to client-port + i (0 lets the OS pick the ports)"))

	key = "clients-number"
	flags.Uint16(key, defaults.ClientsNumber, WrapString("Number of clients to start"))

	key = "log-level"
	flags.String(key, defaults.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "ping-interval"
	flags.Duration(key, defaults.PingInterval, WrapString("Time a client waits after a PONG before it sends the next PING"))

	key = "status-interval"
	flags.Duration(key, defaults.StatusInterval, WrapString("Interval of the status report"))

	key = "connect-retries"
	flags.Int(key, defaults.ConnectRetries, WrapString("How many times a client retries a failed connect (0 = fail at the first error)"))

	key = "max-retry-interval"
	flags.Duration(key, defaults.MaxRetryInterval, WrapString("Upper bound of the backoff between two connect attempts"))

	key = "metrics-endpoint"
	flags.String(key, defaults.MetricsEndpoint, WrapString("Address of the prometheus endpoint (e.g. :9090), disabled if empty"))

	key = "write-buffer"
	flags.Int(key, defaults.WriteBufferSize/1024, WrapString("The size of the socket write buffer (in KB, 0 = OS default)"))

	key = "read-buffer"
	flags.Int(key, defaults.ReadBufferSize/1024, WrapString("The size of the socket read buffer (in KB, 0 = OS default)"))

	key = "tcp-nodelay"
	flags.Bool(key, defaults.TCPNoDelay, WrapString("Whether to enable TCP_NODELAY on all connections"))

	key = "tcp-keepalive"
	flags.Int(key, defaults.TCPKeepAliveSec, WrapString("The keepalive interval (in seconds, 0 = disabled)"))

	key = "tcp-linger"
	flags.Int(key, defaults.TCPLingerSec, WrapString("The linger time (in seconds, -1 = OS default)"))
}

// InitConfig loads the env files, binds the flags of cmd to viper and reads the config
// file. It reports whether a config file was read.
func InitConfig(cmd *cobra.Command) (bool, error) {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dping")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// bind the flags under the keys of the config file
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(configKey(f.Name), f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return false, bindErr
	}

	viper.SetConfigFile(viper.GetString("config"))
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file %s: %w", viper.GetString("config"), err)
	}
	return true, nil
}

// GetExchangeConfig reads the exchange configuration from viper and validates it
func GetExchangeConfig() (common.ExchangeConfig, error) {
	conf := common.ExchangeConfig{
		IP:               viper.GetString("ip"),
		LogLevel:         viper.GetString("log_level"),
		PingInterval:     viper.GetDuration("ping_interval"),
		StatusInterval:   viper.GetDuration("status_interval"),
		ConnectRetries:   viper.GetInt("connect_retries"),
		MaxRetryInterval: viper.GetDuration("max_retry_interval"),
		MetricsEndpoint:  viper.GetString("metrics_endpoint"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write_buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read_buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp_nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp_keepalive"),
			TCPLingerSec:    viper.GetInt("tcp_linger"),
		},
	}

	var err error
	if conf.ServerPort, err = getUint16("server_port"); err != nil {
		return conf, err
	}
	if conf.ClientPort, err = getUint16("client_port"); err != nil {
		return conf, err
	}
	if conf.ClientsNumber, err = getUint16("clients_number"); err != nil {
		return conf, err
	}

	if err := conf.Validate(); err != nil {
		return conf, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, nil
}

// ProcessConfig reads the configuration of cmd, initializes the loggers and starts
// watching the config file. Used as PreRunE by the exchange commands.
func ProcessConfig(cmd *cobra.Command) (common.ExchangeConfig, error) {
	loaded, err := InitConfig(cmd)
	if err != nil {
		return common.ExchangeConfig{}, err
	}

	conf, err := GetExchangeConfig()
	if err != nil {
		return conf, err
	}

	if err := common.InitLoggers(conf.LogLevel); err != nil {
		return conf, err
	}

	if loaded {
		Logger.Infof("using config file %s", viper.ConfigFileUsed())
		WatchConfig()
	} else {
		Logger.Warningf("config file %s not found, using defaults", viper.GetString("config"))
	}

	Logger.Debugf("configuration:%s", conf.String())
	return conf, nil
}

// WatchConfig applies a changed log level of the config file at runtime
func WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		level := strings.ToLower(strings.TrimSpace(viper.GetString("log_level")))
		current := common.LogLevel()
		if level == current {
			Logger.Debugf("config file %s changed (%s), log level unchanged", e.Name, e.Op)
			return
		}
		if err := common.SetLogLevel(level); err != nil {
			Logger.Warningf("config file %s changed (%s): %v", e.Name, e.Op, err)
			return
		}
		Logger.Infof("config file %s changed (%s), log level %s -> %s", e.Name, e.Op, current, level)
	})
	viper.WatchConfig()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// configKey converts a flag name to the key used in the config file
func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func getUint16(key string) (uint16, error) {
	v := viper.GetInt(key)
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("%s must be between 0 and %d, got %d", key, math.MaxUint16, v)
	}
	return uint16(v), nil
}
