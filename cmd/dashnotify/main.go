package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	chclient "github.com/openrport/dashnotify/client"
	"github.com/openrport/dashnotify/client/transport"
	"github.com/openrport/dashnotify/server/routes"
	chshare "github.com/openrport/dashnotify/share"
	"github.com/openrport/dashnotify/share/logger"
)

var clientHelp = `
  Usage: dashnotify [options] [<server>]

  <server> is the URL of the dashboard event stream. http(s) addresses
  are switched to ws(s). Overrides client.server of the config file.

  Options:

    --auth, The bearer token used for the event stream and the order API.
    Defaults to the DASHNOTIFY_AUTH or AUTH environment variable.

    --api-url, Base URL of the order API, used for polling while the
    event stream is down. Required unless --polling=false.

    --polling, Poll the order API while disconnected. Defaults to true.

    --data-dir, Directory for the persisted notifications, settings,
    the poll watermark and the delivery log.

    --storage, Storage driver for the persisted state. Values: "file",
    "sqlite", "bolt", "memory" (defaults to "file").

    --keepalive, Keepalive interval of the push connection, for example
    '30s' or '2m'. A connection that stays silent for twice the interval
    is dropped. Defaults to '30s', '0s' disables it.

    --max-retry-count, Maximum number of reconnects before giving up and
    relying on polling only. Defaults to 10, a negative value retries forever.

    --retry-delay, Wait time between reconnects. Defaults to '3s'.

    --header, Set a custom header in the form "HeaderName: HeaderContent".
    Can be used multiple times. (e.g --header "Foo: Bar" --header "Hello: World")

    --hostname, Optionally set the 'Host' header (defaults to the host
    found in the server url).

    --api-address, Address of the local notification API. Defaults
    to 127.0.0.1:7780, an empty value disables it.

    --verbose, -v, Specify log level. Values: "error", "info", "debug" (defaults to "error")

    --log-file, -l, Specifies log file path. (defaults to empty string: log printed to stdout)

    --config, -c, Path to a TOML config file (defaults to ./dashnotify.conf)

    --service, Manages dashnotify running as a service. Possible commands are
    "install", "uninstall", "start", "stop" and "status".

    --help, This help text

    --version, Print version info and exit

  Signals:
    The dashnotify process is listening for:
      a SIGINT or SIGTERM to close the session and exit

`

var (
	RootCmd = &cobra.Command{
		Version: chshare.BuildVersion,
		Args:    cobra.MaximumNArgs(1),
		Run:     runMain,
	}

	cfgPath    *string
	svcCommand *string
	viperCfg   *viper.Viper
	config     = &chclient.Config{}
)

func init() {
	pFlags := RootCmd.PersistentFlags()

	pFlags.String("auth", "", "")
	pFlags.String("api-url", "", "")
	pFlags.Bool("polling", true, "")
	pFlags.String("data-dir", "", "")
	pFlags.String("storage", "", "")
	pFlags.Duration("keepalive", transport.DefaultKeepAlive, "")
	pFlags.Int("max-retry-count", 0, "")
	pFlags.Duration("retry-delay", 0, "")
	pFlags.StringArray("header", []string{}, "")
	pFlags.String("hostname", "", "")
	pFlags.String("api-address", "", "")
	pFlags.StringP("log-file", "l", "", "")
	pFlags.StringP("verbose", "v", "", "")

	cfgPath = pFlags.StringP("config", "c", "", "")
	svcCommand = pFlags.String("service", "", "")

	RootCmd.SetUsageFunc(func(*cobra.Command) error {
		fmt.Print(clientHelp)
		os.Exit(1)
		return nil
	})

	viperCfg = viper.New()
	viperCfg.SetConfigType("toml")
	setDefaults(viperCfg)

	bindFlags(viperCfg, pFlags)
}

func bindFlags(v *viper.Viper, pFlags *pflag.FlagSet) {
	// map config fields to CLI args:
	_ = v.BindPFlag("logging.log_file", pFlags.Lookup("log-file"))
	_ = v.BindPFlag("logging.log_level", pFlags.Lookup("verbose"))
	_ = v.BindPFlag("client.auth", pFlags.Lookup("auth"))
	_ = v.BindPFlag("client.api_url", pFlags.Lookup("api-url"))
	_ = v.BindPFlag("client.data_dir", pFlags.Lookup("data-dir"))
	_ = v.BindPFlag("polling.enabled", pFlags.Lookup("polling"))
	_ = v.BindPFlag("storage.driver", pFlags.Lookup("storage"))
	_ = v.BindPFlag("connection.keep_alive", pFlags.Lookup("keepalive"))
	_ = v.BindPFlag("connection.max_retry_count", pFlags.Lookup("max-retry-count"))
	_ = v.BindPFlag("connection.retry_delay", pFlags.Lookup("retry-delay"))
	_ = v.BindPFlag("connection.headers", pFlags.Lookup("header"))
	_ = v.BindPFlag("connection.hostname", pFlags.Lookup("hostname"))
	_ = v.BindPFlag("api.address", pFlags.Lookup("api-address"))

	// map ENV variables
	_ = v.BindEnv("client.auth", "DASHNOTIFY_AUTH", "AUTH")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.log_level", "error")
	v.SetDefault("connection.max_retry_count", transport.DefaultMaxRetryCount)
	v.SetDefault("connection.keep_alive", transport.DefaultKeepAlive.String())
	v.SetDefault("polling.enabled", true)
	v.SetDefault("polling.max_auth_failures", 3)
	v.SetDefault("retention.max_count", chclient.DefaultRetentionMaxCount)
	v.SetDefault("retention.max_age", chclient.DefaultRetentionMaxAge.String())
	v.SetDefault("retention.sweep_schedule", chclient.DefaultSweepSchedule)
	v.SetDefault("sound.enabled", true)
	v.SetDefault("sound.cue", "/usr/share/sounds/freedesktop/stereo/message-new-instant.oga")
	v.SetDefault("desktop.enabled", true)
	v.SetDefault("toast.enabled", true)
	v.SetDefault("toast.ttl", "5s")
	v.SetDefault("delivery_log.enabled", true)
	v.SetDefault("api.address", routes.DefaultAPIListenAddress)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func tryDecodeConfig(mLog *logger.MemLogger) error {
	if *cfgPath != "" {
		viperCfg.SetConfigFile(*cfgPath)
	} else {
		viperCfg.AddConfigPath(".")
		viperCfg.SetConfigName("dashnotify.conf")
	}

	if err := chshare.DecodeViperConfig(viperCfg, config); err != nil {
		return err
	}
	if used := viperCfg.ConfigFileUsed(); used != "" {
		mLog.Infof("Using config file %s", used)
	} else {
		mLog.Debugf("No config file found, using flags and defaults")
	}
	return nil
}

func runMain(cmd *cobra.Command, args []string) {
	mLog := logger.NewMemLogger()
	if err := tryDecodeConfig(mLog); err != nil {
		log.Fatal(err)
	}

	if *svcCommand != "" {
		if err := handleSvcCommand(*svcCommand, *cfgPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	if len(args) > 0 {
		config.Client.Server = args[0]
	}

	if err := config.ParseAndValidate(); err != nil {
		log.Fatal(err)
	}

	if err := config.Logging.LogOutput.Start(); err != nil {
		log.Fatal(err)
	}
	defer config.Logging.LogOutput.Shutdown()

	l := logger.NewLogger("dashnotify", config.Logging.LogOutput, config.Logging.LogLevel)
	mLog.Flush(l)

	a := newAgent(config, l)

	if !service.Interactive() {
		if err := runAsService(a, *cfgPath); err != nil {
			l.Errorf("%v", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		l.Errorf("%v", err)
		_ = a.Close()
		os.Exit(1)
	}
	<-ctx.Done()
	l.Infof("Shutting down")
	if err := a.Close(); err != nil {
		l.Errorf("%v", err)
	}
}
