package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
data_dir = /var/lib/siodb/
log_channels = file_log, console_log
log.file_log.type = file
log.file_log.destination = /var/log/siodb/siodb.log
log.console_log.type = console
log.console_log.destination = stdout
`

func loadConfig(t *testing.T, content string) (*SiodbOptions, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	opts := NewSiodbOptions()
	err := opts.LoadFromFile("siodb000", path)
	return opts, err
}

func TestLoadValidConfigDefaults(t *testing.T) {
	opts, err := loadConfig(t, baseConfig)
	require.NoError(t, err)

	assert.Equal(t, "siodb000", opts.General.Name)
	assert.Equal(t, DefaultIPv4PortNumber, opts.General.IPv4Port)
	assert.Equal(t, "/var/lib/siodb", opts.General.DataDirectory)
	assert.Equal(t, DefaultIOManagerWorkerThreadNumber, opts.IOManager.WorkerThreadNumber)
	assert.Equal(t, DefaultIOManagerBlockCacheCapacity, opts.IOManager.BlockCacheCapacity)
	assert.Equal(t, DefaultCipherID, opts.Encryption.DefaultCipherID)
	assert.Equal(t, DefaultCipherID, opts.Encryption.SystemDbCipherID)
	assert.False(t, opts.Client.EnableEncryption)

	require.Len(t, opts.Log.LogChannels, 2)
	fileChannel := opts.Log.LogChannels[0]
	assert.Equal(t, "file_log", fileChannel.Name)
	assert.Equal(t, "file", fileChannel.Type)
	assert.Equal(t, DefaultMaxLogFileSize, fileChannel.MaxLogFileSize)
	assert.Equal(t, DefaultMaxLogFilesCount, fileChannel.MaxFiles)
	assert.Equal(t, DefaultLogFileExpirationTimeout, fileChannel.LogFileExpirationTimeout)
	assert.Equal(t, "info", fileChannel.Severity)
}

func TestLoadRejectsBadPorts(t *testing.T) {
	_, err := loadConfig(t, baseConfig+"ipv4_port = 100\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid IPv4 server port number")

	_, err = loadConfig(t, baseConfig+"ipv4_port = 0\nipv6_port = 0\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Both IPv4 and IPv6 are disabled")
}

func TestIOManagerPortConflict(t *testing.T) {
	_, err := loadConfig(t, baseConfig+"ipv4_port = 50000\niomgr.ipv4_port = 50000\n")
	require.Error(t, err)
	var optErr *InvalidConfigurationOptionError
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "IO Manager and database use the same IPv4 port", optErr.Message)

	_, err = loadConfig(t, baseConfig+"ipv6_port = 50100\niomgr.ipv6_port = 50100\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IO Manager and database use the same IPv6 port")
}

func TestLogMaxFileSizeParsing(t *testing.T) {
	opts, err := loadConfig(t, baseConfig+"log.file_log.max_file_size = 2G\n")
	require.NoError(t, err)
	assert.Equal(t, int64(2)<<30, opts.Log.LogChannels[0].MaxLogFileSize)

	opts, err = loadConfig(t, baseConfig+"log.file_log.max_file_size = 512K\n")
	require.NoError(t, err)
	assert.Equal(t, int64(512)<<10, opts.Log.LogChannels[0].MaxLogFileSize)

	// No suffix defaults to megabytes.
	opts, err = loadConfig(t, baseConfig+"log.file_log.max_file_size = 7\n")
	require.NoError(t, err)
	assert.Equal(t, int64(7)<<20, opts.Log.LogChannels[0].MaxLogFileSize)

	_, err = loadConfig(t, baseConfig+"log.file_log.max_file_size = 0\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value is zero")

	_, err = loadConfig(t, baseConfig+"log.file_log.max_file_size = 5G\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value is too big")
}

func TestLogExpirationTimeParsing(t *testing.T) {
	opts, err := loadConfig(t, baseConfig+"log.file_log.exp_time = 2w\n")
	require.NoError(t, err)
	assert.Equal(t, 2*SecondsInWeek, opts.Log.LogChannels[0].LogFileExpirationTimeout)

	opts, err = loadConfig(t, baseConfig+"log.file_log.exp_time = 12h\n")
	require.NoError(t, err)
	assert.Equal(t, 12*SecondsInHour, opts.Log.LogChannels[0].LogFileExpirationTimeout)

	_, err = loadConfig(t, baseConfig+"log.file_log.exp_time = 100000w\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value is too big")
}

func TestLogChannelValidation(t *testing.T) {
	_, err := loadConfig(t, `
data_dir = /var/lib/siodb
log_channels = a,,b
log.a.type = console
log.a.destination = stdout
log.b.type = console
log.b.destination = stdout
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Empty log channel name detected")

	_, err = loadConfig(t, `
data_dir = /var/lib/siodb
log_channels = a, a
log.a.type = console
log.a.destination = stdout
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Duplicate log channel name a")

	_, err = loadConfig(t, `
data_dir = /var/lib/siodb
log_channels = a
log.a.destination = stdout
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Type not defined for the log channel a")

	_, err = loadConfig(t, `
data_dir = /var/lib/siodb
log_channels = a
log.a.type = syslog
log.a.destination = stdout
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported channel type")

	_, err = loadConfig(t, baseConfig+"log.file_log.severity = verbose\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid log severity level")

	opts, err := loadConfig(t, baseConfig+"log.file_log.severity = WARNING\n")
	require.NoError(t, err)
	assert.Equal(t, "warning", opts.Log.LogChannels[0].Severity)
}

func TestDataDirValidation(t *testing.T) {
	_, err := loadConfig(t, `
log_channels = a
log.a.type = console
log.a.destination = stdout
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Data directory not specified or empty")
}

func TestCacheCapacityMinimums(t *testing.T) {
	_, err := loadConfig(t, baseConfig+"iomgr.block_cache_capacity = 1\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block cache capacity is too small")

	_, err = loadConfig(t, baseConfig+"iomgr.table_cache_capacity = 1\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table cache capacity is too small")

	opts, err := loadConfig(t, baseConfig+"iomgr.table_cache_capacity = 500\n")
	require.NoError(t, err)
	assert.Equal(t, 500, opts.IOManager.TableCacheCapacity)
}

func TestWorkerThreadValidation(t *testing.T) {
	_, err := loadConfig(t, baseConfig+"iomgr.worker_threads = 0\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker threads is out of range")

	_, err = loadConfig(t, baseConfig+"iomgr.writer_threads = 0\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writer threads is out of range")
}

func TestClientEncryptionOptions(t *testing.T) {
	// Encryption disabled: TLS options are not required.
	opts, err := loadConfig(t, baseConfig+"client.enable_encryption = no\n")
	require.NoError(t, err)
	assert.False(t, opts.Client.EnableEncryption)

	_, err = loadConfig(t, baseConfig+"client.enable_encryption = TRUE\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificate or certificate chain must be set")

	// A certificate chain alone is sufficient.
	opts, err = loadConfig(t, baseConfig+`client.enable_encryption = Yes
client.tls_certificate_chain = /etc/siodb/chain.pem
client.tls_private_key = /etc/siodb/key.pem
`)
	require.NoError(t, err)
	assert.True(t, opts.Client.EnableEncryption)
	assert.Equal(t, "/etc/siodb/chain.pem", opts.Client.TLSCertificateChain)

	_, err = loadConfig(t, baseConfig+`client.enable_encryption = yes
client.tls_certificate = /etc/siodb/cert.pem
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key is empty")

	_, err = loadConfig(t, baseConfig+"client.enable_encryption = maybe\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client encryption option")
}

func TestEncryptionCipherDefaults(t *testing.T) {
	opts, err := loadConfig(t, baseConfig+"encryption.default_cipher_id = aes256\n")
	require.NoError(t, err)
	assert.Equal(t, "aes256", opts.Encryption.DefaultCipherID)
	// The system database cipher follows the default unless set explicitly.
	assert.Equal(t, "aes256", opts.Encryption.SystemDbCipherID)

	opts, err = loadConfig(t, baseConfig+`encryption.default_cipher_id = aes256
encryption.system_db_cipher_id = aes128
`)
	require.NoError(t, err)
	assert.Equal(t, "aes128", opts.Encryption.SystemDbCipherID)
}

func TestInstanceNameAndPaths(t *testing.T) {
	assert.True(t, IsValidInstanceName("siodb000"))
	assert.True(t, IsValidInstanceName("_test"))
	assert.False(t, IsValidInstanceName(""))
	assert.False(t, IsValidInstanceName("0abc"))
	assert.False(t, IsValidInstanceName("bad-name"))

	assert.Equal(t, "/etc/siodb/instances/siodb000/config",
		ComposeInstanceConfigFilePath("siodb000"))
	assert.Equal(t, "/run/siodb/siodb000/siodb.lock",
		ComposeInstanceLockFilePath("siodb000"))
	assert.Equal(t, "/run/siodb/siodb000/iomgr.init",
		ComposeIOManagerInitFlagFilePath("siodb000"))
}
