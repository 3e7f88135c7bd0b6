package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/govindnetworks/siodb/logger"
	"github.com/govindnetworks/siodb/server/conf"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine"
)

const (
	exitCodeSuccess       = 0
	exitCodeUsage         = 1
	exitCodeConfiguration = 2
	exitCodeDaemonize     = 3
	exitCodeRuntimeFatal  = 4
)

const daemonChildEnv = "SIODB_DAEMON_CHILD"

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	var instanceName string
	var runAsDaemon bool
	flags.StringVar(&instanceName, "instance", "", "Instance name")
	flags.BoolVar(&runAsDaemon, "daemon", false, "Run as daemon")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return exitCodeSuccess
		}
		return exitCodeUsage
	}

	if instanceName == "" {
		fmt.Fprintln(os.Stderr, "Error: Instance name not defined.")
		fmt.Fprintf(os.Stderr, "Try %s --help for more information.\n", filepath.Base(os.Args[0]))
		return exitCodeUsage
	}

	options := conf.NewSiodbOptions()
	if err := options.Load(instanceName); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v.\n", err)
		return exitCodeConfiguration
	}

	if runAsDaemon && os.Getenv(daemonChildEnv) == "" {
		if err := daemonize(); err != nil {
			return exitCodeDaemonize
		}
		return exitCodeSuccess
	}

	if err := logger.InitLogger(options.LoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Can't initialize logging: %v.\n", err)
		return exitCodeConfiguration
	}

	logger.Infof("Siodb instance %s starting", instanceName)

	runDir := conf.ComposeInstanceRunDir(instanceName)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Errorf("Can't create instance run directory %s: %v", runDir, err)
		return exitCodeRuntimeFatal
	}

	// The advisory lock prevents concurrent startup of the same instance.
	lockFile, err := acquireInstanceLock(conf.ComposeInstanceLockFilePath(instanceName))
	if err != nil {
		logger.Errorf("%v", err)
		return exitCodeRuntimeFatal
	}
	defer lockFile.Close()

	initFlagPath := conf.ComposeIOManagerInitFlagFilePath(instanceName)
	os.Remove(initFlagPath)

	instance, err := dbengine.NewInstance(options)
	if err != nil {
		logger.Errorf("Can't initialize instance: %v", err)
		return exitCodeRuntimeFatal
	}

	if err := instance.CheckDataConsistency(); err != nil {
		logger.Errorf("Data consistency check failed: %v", err)
		return exitCodeRuntimeFatal
	}

	// The flag tells the supervising process the IO manager finished
	// startup.
	if err := os.WriteFile(initFlagPath, nil, 0o644); err != nil {
		logger.Errorf("Can't create initialization flag file %s: %v", initFlagPath, err)
		return exitCodeRuntimeFatal
	}

	logger.Infof("Instance %s (%s) is up, %d database(s) known",
		instance.DisplayName(), instance.DisplayCode(), instance.DatabaseCount())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.Infof("Database instance is shutting down due to signal %v", sig)

	return exitCodeSuccess
}

// daemonize re-executes the process detached from the controlling
// terminal.
func daemonize() error {
	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonChildEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Start()
}

// acquireInstanceLock takes a non-blocking advisory lock on the instance
// lock file. Failure to lock is fatal to the starting process.
func acquireInstanceLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("can't open or create initialization lock file %s: %v", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("can't lock initialization lock file %s: %v", path, err)
	}
	return f, nil
}
