package conf

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/govindnetworks/siodb/logger"
)

// Option names. The instance configuration file is a flat key=value INI
// document; option groups are expressed with dotted prefixes.
const (
	GeneralOptionIPv4Port                       = "ipv4_port"
	GeneralOptionIPv6Port                       = "ipv6_port"
	GeneralOptionDataDirectory                  = "data_dir"
	GeneralOptionAdminConnectionListenerBacklog = "admin_connection_listener_backlog"
	GeneralOptionMaxAdminConnections            = "max_admin_connections"
	GeneralOptionUserConnectionListenerBacklog  = "user_connection_listener_backlog"
	GeneralOptionMaxUserConnections             = "max_user_connections"
	GeneralOptionLogChannels                    = "log_channels"

	LogChannelOptionType           = "type"
	LogChannelOptionDestination    = "destination"
	LogChannelOptionMaxFileSize    = "max_file_size"
	LogChannelOptionMaxFiles       = "max_files"
	LogChannelOptionExpirationTime = "exp_time"
	LogChannelOptionSeverity       = "severity"

	IOManagerOptionWorkerThreadNumber    = "iomgr.worker_threads"
	IOManagerOptionWriterThreadNumber    = "iomgr.writer_threads"
	IOManagerOptionIPv4Port              = "iomgr.ipv4_port"
	IOManagerOptionIPv6Port              = "iomgr.ipv6_port"
	IOManagerOptionBlockCacheCapacity    = "iomgr.block_cache_capacity"
	IOManagerOptionUserCacheCapacity     = "iomgr.user_cache_capacity"
	IOManagerOptionDatabaseCacheCapacity = "iomgr.database_cache_capacity"
	IOManagerOptionTableCacheCapacity    = "iomgr.table_cache_capacity"

	EncryptionOptionDefaultCipherID  = "encryption.default_cipher_id"
	EncryptionOptionSystemDbCipherID = "encryption.system_db_cipher_id"

	ClientOptionEnableEncryption    = "client.enable_encryption"
	ClientOptionTLSCertificate      = "client.tls_certificate"
	ClientOptionTLSCertificateChain = "client.tls_certificate_chain"
	ClientOptionTLSPrivateKey       = "client.tls_private_key"
)

// Defaults and limits.
const (
	MinPortNumber = 1024
	MaxPortNumber = 65535

	DefaultIPv4PortNumber          = 50000
	DefaultIPv6PortNumber          = 0
	DefaultIOManagerIPv4PortNumber = 50001
	DefaultIOManagerIPv6PortNumber = 0

	DefaultAdminConnectionListenerBacklog = 10
	MaxAdminConnectionListenerBacklog     = 1024
	DefaultMaxAdminConnections            = 10
	MaxMaxAdminConnections                = 8192
	DefaultUserConnectionListenerBacklog  = 10
	MaxUserConnectionListenerBacklog      = 32768
	DefaultMaxUserConnections             = 100
	MaxMaxUserConnections                 = 32768

	DefaultIOManagerWorkerThreadNumber = 2
	DefaultIOManagerWriterThreadNumber = 2

	MinIOManagerBlockCacheCapacity        = 25
	DefaultIOManagerBlockCacheCapacity    = 103
	MinIOManagerUserCacheCapacity         = 10
	DefaultIOManagerUserCacheCapacity     = 100
	MinIOManagerDatabaseCacheCapacity     = 10
	DefaultIOManagerDatabaseCacheCapacity = 100
	MinIOManagerTableCacheCapacity        = 20
	DefaultIOManagerTableCacheCapacity    = 100

	BytesInKB = int64(1) << 10
	BytesInMB = int64(1) << 20
	BytesInGB = int64(1) << 30

	DefaultMaxLogFileSize = 10 * BytesInMB
	MaxMaxLogFileSize     = 4 * BytesInGB

	DefaultMaxLogFilesCount = uint64(10)

	SecondsInMinute = int64(60)
	SecondsInHour   = 60 * SecondsInMinute
	SecondsInDay    = 24 * SecondsInHour
	SecondsInWeek   = 7 * SecondsInDay

	DefaultLogFileExpirationTimeout = 30 * SecondsInDay
	MaxLogFileExpirationTimeout     = 365 * SecondsInDay

	// DefaultCipherID is the cipher used for new databases unless
	// configured otherwise.
	DefaultCipherID = "aes128"

	DefaultClientEnableEncryption = false
)

var logSeverityNames = []string{"trace", "debug", "info", "warning", "error", "fatal"}

// InvalidConfigurationOptionError reports a malformed or out-of-range
// configuration option.
type InvalidConfigurationOptionError struct {
	Message string
}

func (e *InvalidConfigurationOptionError) Error() string {
	return e.Message
}

func newOptionError(format string, args ...interface{}) error {
	return &InvalidConfigurationOptionError{Message: fmt.Sprintf(format, args...)}
}

// GeneralOptions is the top-level option group.
type GeneralOptions struct {
	Name                           string
	IPv4Port                       int
	IPv6Port                       int
	DataDirectory                  string
	AdminConnectionListenerBacklog int
	MaxAdminConnections            int
	UserConnectionListenerBacklog  int
	MaxUserConnections             int
	ExecutablePath                 string
}

// LogChannelOptions describes one "log.<name>.*" group.
type LogChannelOptions struct {
	Name                     string
	Type                     string // "console" or "file"
	Destination              string
	MaxLogFileSize           int64
	MaxFiles                 uint64
	LogFileExpirationTimeout int64 // seconds
	Severity                 string
}

// LogOptions is the logging option group.
type LogOptions struct {
	LogFileBaseName string
	LogChannels     []LogChannelOptions
}

// IOManagerOptions is the "iomgr.*" option group.
type IOManagerOptions struct {
	WorkerThreadNumber    int
	WriterThreadNumber    int
	IPv4Port              int
	IPv6Port              int
	BlockCacheCapacity    int
	UserCacheCapacity     int
	DatabaseCacheCapacity int
	TableCacheCapacity    int
}

// EncryptionOptions is the "encryption.*" option group.
type EncryptionOptions struct {
	DefaultCipherID  string
	SystemDbCipherID string
}

// ClientOptions is the "client.*" option group.
type ClientOptions struct {
	EnableEncryption    bool
	TLSCertificate      string
	TLSCertificateChain string
	TLSPrivateKey       string
}

// SiodbOptions is the validated instance configuration that seeds every
// database object.
type SiodbOptions struct {
	General    GeneralOptions
	Log        LogOptions
	IOManager  IOManagerOptions
	Encryption EncryptionOptions
	Client     ClientOptions
}

// NewSiodbOptions returns an options record populated with defaults.
func NewSiodbOptions() *SiodbOptions {
	return &SiodbOptions{
		General: GeneralOptions{
			IPv4Port:                       DefaultIPv4PortNumber,
			IPv6Port:                       DefaultIPv6PortNumber,
			AdminConnectionListenerBacklog: DefaultAdminConnectionListenerBacklog,
			MaxAdminConnections:            DefaultMaxAdminConnections,
			UserConnectionListenerBacklog:  DefaultUserConnectionListenerBacklog,
			MaxUserConnections:             DefaultMaxUserConnections,
		},
		IOManager: IOManagerOptions{
			WorkerThreadNumber:    DefaultIOManagerWorkerThreadNumber,
			WriterThreadNumber:    DefaultIOManagerWriterThreadNumber,
			IPv4Port:              DefaultIOManagerIPv4PortNumber,
			IPv6Port:              DefaultIOManagerIPv6PortNumber,
			BlockCacheCapacity:    DefaultIOManagerBlockCacheCapacity,
			UserCacheCapacity:     DefaultIOManagerUserCacheCapacity,
			DatabaseCacheCapacity: DefaultIOManagerDatabaseCacheCapacity,
			TableCacheCapacity:    DefaultIOManagerTableCacheCapacity,
		},
		Encryption: EncryptionOptions{
			DefaultCipherID:  DefaultCipherID,
			SystemDbCipherID: DefaultCipherID,
		},
		Client: ClientOptions{
			EnableEncryption: DefaultClientEnableEncryption,
		},
	}
}

// LoggerConfig converts the log channel options into the logger package
// configuration.
func (opts *SiodbOptions) LoggerConfig() logger.Config {
	cfg := logger.Config{}
	for _, ch := range opts.Log.LogChannels {
		cfg.Channels = append(cfg.Channels, logger.ChannelConfig{
			Name:        ch.Name,
			Type:        ch.Type,
			Destination: ch.Destination,
			Severity:    ch.Severity,
		})
	}
	return cfg
}

// Load reads the named instance's configuration file and validates it.
func (opts *SiodbOptions) Load(instanceName string) error {
	if !IsValidInstanceName(instanceName) {
		return newOptionError("invalid instance name '%s'", instanceName)
	}
	return opts.LoadFromFile(instanceName, ComposeInstanceConfigFilePath(instanceName))
}

// LoadFromFile reads the given configuration file and validates it. All
// options are validated into a scratch record first; opts is modified only
// when the whole file is valid.
func (opts *SiodbOptions) LoadFromFile(instanceName, configFile string) error {
	iniFile, err := ini.LoadSources(ini.LoadOptions{}, configFile)
	if err != nil {
		return newOptionError("cannot read instance configuration file %s: %v", configFile, err)
	}

	tmp := NewSiodbOptions()
	tmp.General.Name = instanceName
	section := iniFile.Section("")

	if err := tmp.parseGeneralOptions(section); err != nil {
		return err
	}
	if err := tmp.parseLogOptions(section); err != nil {
		return err
	}
	if err := tmp.parseIOManagerOptions(section); err != nil {
		return err
	}
	if err := tmp.parseEncryptionOptions(section); err != nil {
		return err
	}
	if err := tmp.parseClientOptions(section); err != nil {
		return err
	}

	*opts = *tmp
	return nil
}

func (opts *SiodbOptions) parseGeneralOptions(section *ini.Section) error {
	opts.General.IPv4Port = section.Key(GeneralOptionIPv4Port).MustInt(DefaultIPv4PortNumber)
	if opts.General.IPv4Port != 0 &&
		(opts.General.IPv4Port < MinPortNumber || opts.General.IPv4Port > MaxPortNumber) {
		return newOptionError("Invalid IPv4 server port number")
	}

	opts.General.IPv6Port = section.Key(GeneralOptionIPv6Port).MustInt(DefaultIPv6PortNumber)
	if opts.General.IPv6Port != 0 &&
		(opts.General.IPv6Port < MinPortNumber || opts.General.IPv6Port > MaxPortNumber) {
		return newOptionError("Invalid IPv6 server port number")
	}

	if opts.General.IPv4Port == 0 && opts.General.IPv6Port == 0 {
		return newOptionError("Both IPv4 and IPv6 are disabled")
	}

	dataDir := strings.TrimSpace(section.Key(GeneralOptionDataDirectory).MustString(""))
	for len(dataDir) > 0 && dataDir[len(dataDir)-1] == '/' {
		dataDir = dataDir[:len(dataDir)-1]
	}
	if dataDir == "" {
		return newOptionError("Data directory not specified or empty")
	}
	opts.General.DataDirectory = dataDir

	backlog := section.Key(GeneralOptionAdminConnectionListenerBacklog).
		MustInt(DefaultAdminConnectionListenerBacklog)
	if backlog < 1 || backlog > MaxAdminConnectionListenerBacklog {
		return newOptionError("Admin connection listener backlog value is out of range")
	}
	opts.General.AdminConnectionListenerBacklog = backlog

	maxAdminConns := section.Key(GeneralOptionMaxAdminConnections).MustInt(DefaultMaxAdminConnections)
	if maxAdminConns < 1 || maxAdminConns > MaxMaxAdminConnections {
		return newOptionError("Max. number of admin connections is out of range")
	}
	opts.General.MaxAdminConnections = maxAdminConns

	backlog = section.Key(GeneralOptionUserConnectionListenerBacklog).
		MustInt(DefaultUserConnectionListenerBacklog)
	if backlog < 1 || backlog > MaxUserConnectionListenerBacklog {
		return newOptionError("User connection listener backlog value is out of range")
	}
	opts.General.UserConnectionListenerBacklog = backlog

	maxUserConns := section.Key(GeneralOptionMaxUserConnections).MustInt(DefaultMaxUserConnections)
	if maxUserConns < 1 || maxUserConns > MaxMaxUserConnections {
		return newOptionError("Max. number of user connections is out of range")
	}
	opts.General.MaxUserConnections = maxUserConns

	return nil
}

func (opts *SiodbOptions) parseLogOptions(section *ini.Section) error {
	// Collect and validate log channel names.
	var channels []string
	knownChannels := make(map[string]struct{})
	value := strings.TrimSpace(section.Key(GeneralOptionLogChannels).MustString(""))
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			return newOptionError("Empty log channel name detected")
		}
		if _, ok := knownChannels[v]; ok {
			return newOptionError("Duplicate log channel name %s", v)
		}
		knownChannels[v] = struct{}{}
		channels = append(channels, v)
	}

	if len(channels) == 0 {
		return newOptionError("No log channels defined")
	}

	for _, logChannelName := range channels {
		channelOptionPrefix := "log." + logChannelName + "."

		channelOptions := LogChannelOptions{Name: logChannelName}

		// Channel type
		channelType := section.Key(channelOptionPrefix + LogChannelOptionType).MustString("")
		switch channelType {
		case "":
			return newOptionError("Type not defined for the log channel %s", logChannelName)
		case "console", "file":
			channelOptions.Type = channelType
		default:
			return newOptionError("Unsupported channel type '%s' specified for the log channel %s",
				channelType, logChannelName)
		}

		// Destination
		channelOptions.Destination = strings.TrimSpace(
			section.Key(channelOptionPrefix + LogChannelOptionDestination).MustString(""))
		if channelOptions.Destination == "" {
			return newOptionError("Destination not defined for the log channel %s", logChannelName)
		}

		// Max. file size
		option := strings.TrimSpace(section.Key(channelOptionPrefix + LogChannelOptionMaxFileSize).
			MustString(fmt.Sprintf("%d", DefaultMaxLogFileSize/BytesInMB)))
		maxFileSize, err := parseSizeWithSuffix(option, BytesInMB, MaxMaxLogFileSize)
		if err != nil {
			return newOptionError("Invalid value of max. file size for the log channel %s: %v",
				logChannelName, err)
		}
		channelOptions.MaxLogFileSize = maxFileSize

		// Max. number of files
		option = strings.TrimSpace(section.Key(channelOptionPrefix + LogChannelOptionMaxFiles).
			MustString(fmt.Sprintf("%d", DefaultMaxLogFilesCount)))
		maxFiles, err := parseCount(option)
		if err != nil {
			return newOptionError(
				"Invalid value of max. number of log files for the log channel %s: %v",
				logChannelName, err)
		}
		channelOptions.MaxFiles = maxFiles

		// Expiration time
		option = strings.TrimSpace(section.Key(channelOptionPrefix + LogChannelOptionExpirationTime).
			MustString(fmt.Sprintf("%d", DefaultLogFileExpirationTimeout/SecondsInDay)))
		expTime, err := parseTimeWithSuffix(option, SecondsInDay, MaxLogFileExpirationTimeout)
		if err != nil {
			return newOptionError("Invalid value of expiration time for the log channel %s: %v",
				logChannelName, err)
		}
		channelOptions.LogFileExpirationTimeout = expTime

		// Severity
		option = strings.TrimSpace(section.Key(channelOptionPrefix + LogChannelOptionSeverity).
			MustString("info"))
		found := false
		for _, name := range logSeverityNames {
			if strings.EqualFold(option, name) {
				channelOptions.Severity = name
				found = true
				break
			}
		}
		if !found {
			return newOptionError("Invalid log severity level for the log channel %s", logChannelName)
		}

		opts.Log.LogChannels = append(opts.Log.LogChannels, channelOptions)
	}

	return nil
}

func (opts *SiodbOptions) parseIOManagerOptions(section *ini.Section) error {
	workerThreads := section.Key(IOManagerOptionWorkerThreadNumber).
		MustInt(DefaultIOManagerWorkerThreadNumber)
	if workerThreads < 1 {
		return newOptionError("Number of IO Manager worker threads is out of range")
	}
	opts.IOManager.WorkerThreadNumber = workerThreads

	writerThreads := section.Key(IOManagerOptionWriterThreadNumber).
		MustInt(DefaultIOManagerWriterThreadNumber)
	if writerThreads < 1 {
		return newOptionError("Number of IO Manager writer threads is out of range")
	}
	opts.IOManager.WriterThreadNumber = writerThreads

	opts.IOManager.IPv4Port = section.Key(IOManagerOptionIPv4Port).
		MustInt(DefaultIOManagerIPv4PortNumber)
	if opts.IOManager.IPv4Port != 0 &&
		(opts.IOManager.IPv4Port < MinPortNumber || opts.IOManager.IPv4Port > MaxPortNumber) {
		return newOptionError("Invalid IO Manager IPv4 port number")
	}
	if opts.IOManager.IPv4Port != 0 && opts.IOManager.IPv4Port == opts.General.IPv4Port {
		return newOptionError("IO Manager and database use the same IPv4 port")
	}

	opts.IOManager.IPv6Port = section.Key(IOManagerOptionIPv6Port).
		MustInt(DefaultIOManagerIPv6PortNumber)
	if opts.IOManager.IPv6Port != 0 &&
		(opts.IOManager.IPv6Port < MinPortNumber || opts.IOManager.IPv6Port > MaxPortNumber) {
		return newOptionError("Invalid IO Manager IPv6 port number")
	}
	if opts.IOManager.IPv6Port != 0 && opts.IOManager.IPv6Port == opts.General.IPv6Port {
		return newOptionError("IO Manager and database use the same IPv6 port")
	}

	if opts.IOManager.IPv4Port == 0 && opts.IOManager.IPv6Port == 0 {
		return newOptionError("Both IPv4 and IPv6 are disabled for IO Manager")
	}

	capacity := section.Key(IOManagerOptionBlockCacheCapacity).
		MustInt(DefaultIOManagerBlockCacheCapacity)
	if capacity < MinIOManagerBlockCacheCapacity {
		return newOptionError("IO Manager block cache capacity is too small")
	}
	opts.IOManager.BlockCacheCapacity = capacity

	capacity = section.Key(IOManagerOptionUserCacheCapacity).
		MustInt(DefaultIOManagerUserCacheCapacity)
	if capacity < MinIOManagerUserCacheCapacity {
		return newOptionError("IO Manager user cache capacity is too small")
	}
	opts.IOManager.UserCacheCapacity = capacity

	capacity = section.Key(IOManagerOptionDatabaseCacheCapacity).
		MustInt(DefaultIOManagerDatabaseCacheCapacity)
	if capacity < MinIOManagerDatabaseCacheCapacity {
		return newOptionError("IO Manager database cache capacity is too small")
	}
	opts.IOManager.DatabaseCacheCapacity = capacity

	capacity = section.Key(IOManagerOptionTableCacheCapacity).
		MustInt(DefaultIOManagerTableCacheCapacity)
	if capacity < MinIOManagerTableCacheCapacity {
		return newOptionError("IO Manager table cache capacity is too small")
	}
	opts.IOManager.TableCacheCapacity = capacity

	return nil
}

func (opts *SiodbOptions) parseEncryptionOptions(section *ini.Section) error {
	opts.Encryption.DefaultCipherID = strings.TrimSpace(
		section.Key(EncryptionOptionDefaultCipherID).MustString(DefaultCipherID))
	opts.Encryption.SystemDbCipherID = strings.TrimSpace(
		section.Key(EncryptionOptionSystemDbCipherID).MustString(opts.Encryption.DefaultCipherID))
	return nil
}

func (opts *SiodbOptions) parseClientOptions(section *ini.Section) error {
	enable, err := parseBoolOption(
		section.Key(ClientOptionEnableEncryption).MustString(""), DefaultClientEnableEncryption)
	if err != nil {
		return newOptionError("Invalid value of the client encryption option: %v", err)
	}
	opts.Client.EnableEncryption = enable

	if !opts.Client.EnableEncryption {
		return nil
	}

	opts.Client.TLSCertificate = strings.TrimSpace(
		section.Key(ClientOptionTLSCertificate).MustString(""))
	opts.Client.TLSCertificateChain = strings.TrimSpace(
		section.Key(ClientOptionTLSCertificateChain).MustString(""))
	opts.Client.TLSPrivateKey = strings.TrimSpace(
		section.Key(ClientOptionTLSPrivateKey).MustString(""))

	// Either a certificate or a certificate chain is sufficient.
	if opts.Client.TLSCertificate == "" && opts.Client.TLSCertificateChain == "" {
		return newOptionError(
			"Client certificate or certificate chain must be set to create a TLS connection")
	}

	if opts.Client.TLSPrivateKey == "" {
		return newOptionError("Client TLS private key is empty")
	}

	return nil
}

func parseBoolOption(value string, defaultValue bool) (bool, error) {
	if value == "" {
		return defaultValue, nil
	}
	switch strings.ToLower(value) {
	case "true", "yes":
		return true, nil
	case "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized boolean value '%s'", value)
}

// parseSizeWithSuffix parses a positive size with an optional K/M/G suffix.
// A value without a suffix is taken in units of defaultMultiplier.
func parseSizeWithSuffix(option string, defaultMultiplier, maxValue int64) (int64, error) {
	multiplier := int64(0)
	if len(option) > 1 {
		switch option[len(option)-1] {
		case 'k', 'K':
			multiplier = BytesInKB
		case 'm', 'M':
			multiplier = BytesInMB
		case 'g', 'G':
			multiplier = BytesInGB
		}
		if multiplier > 0 {
			option = option[:len(option)-1]
		}
	}
	if multiplier == 0 {
		multiplier = defaultMultiplier
	}
	var value int64
	if _, err := fmt.Sscanf(option, "%d", &value); err != nil || value < 0 {
		return 0, fmt.Errorf("malformed value '%s'", option)
	}
	if value == 0 {
		return 0, fmt.Errorf("value is zero")
	}
	if value > maxValue/multiplier {
		return 0, fmt.Errorf("value is too big")
	}
	return value * multiplier, nil
}

// parseTimeWithSuffix parses a duration with an optional s/m/h/d/w suffix.
// A value without a suffix is taken in units of defaultMultiplier seconds.
func parseTimeWithSuffix(option string, defaultMultiplier, maxValue int64) (int64, error) {
	multiplier := int64(0)
	if len(option) > 1 {
		switch option[len(option)-1] {
		case 's', 'S':
			multiplier = 1
		case 'm', 'M':
			multiplier = SecondsInMinute
		case 'h', 'H':
			multiplier = SecondsInHour
		case 'd', 'D':
			multiplier = SecondsInDay
		case 'w', 'W':
			multiplier = SecondsInWeek
		}
		if multiplier > 1 {
			option = option[:len(option)-1]
		}
	}
	if multiplier == 0 {
		multiplier = defaultMultiplier
	}
	var value int64
	if _, err := fmt.Sscanf(option, "%d", &value); err != nil || value < 0 {
		return 0, fmt.Errorf("malformed value '%s'", option)
	}
	if value > maxValue/multiplier {
		return 0, fmt.Errorf("value is too big")
	}
	return value * multiplier, nil
}

func parseCount(option string) (uint64, error) {
	var value uint64
	if _, err := fmt.Sscanf(option, "%d", &value); err != nil {
		return 0, fmt.Errorf("malformed value '%s'", option)
	}
	if value == 0 {
		return 0, fmt.Errorf("value is zero")
	}
	return value, nil
}
