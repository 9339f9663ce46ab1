package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/someapp/riak-dt/config"
	"github.com/someapp/riak-dt/crdt"
	"github.com/someapp/riak-dt/metrics"
)

// initLogger initializes a JSON go-kit logger set to the given log level.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// parseKind maps a -kind flag value to a crdt.Kind.
func parseKind(s string) (crdt.Kind, error) {
	switch strings.ToLower(s) {
	case "orswot":
		return crdt.KindORSWOT, nil
	case "flag":
		return crdt.KindFlag, nil
	case "map":
		return crdt.KindMap, nil
	default:
		return 0, fmt.Errorf("unrecognized kind %q, want one of orswot, flag, map", s)
	}
}

// loadValue reads and decodes the binary blob at path.
func loadValue(path string) (crdt.CRDT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return crdt.FromBinary(data)
}

// storeValue encodes v and writes it to path.
func storeValue(path string, v crdt.CRDT) error {
	data, err := crdt.ToBinary(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func main() {

	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "expected a subcommand: encode, add, remove, merge, stats, decode, serve-metrics")
		os.Exit(1)
	}

	logger := initLogger(*loglevelFlag)
	subcommand, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch subcommand {
	case "encode":
		err = runEncode(args)
	case "add":
		err = runAdd(args)
	case "remove":
		err = runRemove(args)
	case "merge":
		err = runMerge(args)
	case "stats":
		err = runStats(args)
	case "decode":
		err = runDecode(args)
	case "serve-metrics":
		err = runServeMetrics(logger, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", subcommand)
		os.Exit(1)
	}

	if err != nil {
		level.Error(logger).Log("msg", "crdtctl "+subcommand+" failed", "err", err)
		os.Exit(1)
	}
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	kindFlag := fs.String("kind", "orswot", "Kind of CRDT to create: orswot, flag, or map.")
	outFlag := fs.String("out", "", "Path to write the encoded blob to.")
	fs.Parse(args)

	kind, err := parseKind(*kindFlag)
	if err != nil {
		return err
	}
	if *outFlag == "" {
		return fmt.Errorf("-out is required")
	}
	return storeValue(*outFlag, crdt.Empty(kind))
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	inFlag := fs.String("in", "", "Path to the ORSWOT blob to read.")
	outFlag := fs.String("out", "", "Path to write the updated blob to.")
	actorFlag := fs.String("actor", "", "Actor stamping the update.")
	elemFlag := fs.String("elem", "", "Element to add.")
	fs.Parse(args)

	if *inFlag == "" || *outFlag == "" || *actorFlag == "" || *elemFlag == "" {
		return fmt.Errorf("-in, -out, -actor and -elem are all required")
	}

	v, err := loadValue(*inFlag)
	if err != nil {
		return err
	}
	s, ok := v.(*crdt.ORSWOT)
	if !ok {
		return fmt.Errorf("%s does not hold an orswot value", *inFlag)
	}

	return storeValue(*outFlag, s.Add(*elemFlag, crdt.FromActor(crdt.Actor(*actorFlag))))
}

func runRemove(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	inFlag := fs.String("in", "", "Path to the ORSWOT blob to read.")
	outFlag := fs.String("out", "", "Path to write the updated blob to.")
	elemFlag := fs.String("elem", "", "Element to remove.")
	fs.Parse(args)

	if *inFlag == "" || *outFlag == "" || *elemFlag == "" {
		return fmt.Errorf("-in, -out and -elem are all required")
	}

	v, err := loadValue(*inFlag)
	if err != nil {
		return err
	}
	s, ok := v.(*crdt.ORSWOT)
	if !ok {
		return fmt.Errorf("%s does not hold an orswot value", *inFlag)
	}

	updated, err := s.Remove(*elemFlag)
	if err != nil {
		return err
	}
	return storeValue(*outFlag, updated)
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	aFlag := fs.String("a", "", "Path to the first blob.")
	bFlag := fs.String("b", "", "Path to the second blob.")
	outFlag := fs.String("out", "", "Path to write the merged blob to.")
	fs.Parse(args)

	if *aFlag == "" || *bFlag == "" || *outFlag == "" {
		return fmt.Errorf("-a, -b and -out are all required")
	}

	a, err := loadValue(*aFlag)
	if err != nil {
		return err
	}
	b, err := loadValue(*bFlag)
	if err != nil {
		return err
	}

	return storeValue(*outFlag, a.Merge(b))
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	inFlag := fs.String("in", "", "Path to the blob to inspect.")
	fs.Parse(args)

	if *inFlag == "" {
		return fmt.Errorf("-in is required")
	}

	v, err := loadValue(*inFlag)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(crdt.Stats(v))
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	inFlag := fs.String("in", "", "Path to the blob to inspect.")
	fs.Parse(args)

	if *inFlag == "" {
		return fmt.Errorf("-in is required")
	}

	v, err := loadValue(*inFlag)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(v.Value())
}

func runServeMetrics(logger log.Logger, args []string) error {
	fs := flag.NewFlagSet("serve-metrics", flag.ExitOnError)
	addrFlag := fs.String("addr", ":9090", "Address to serve Prometheus metrics on.")
	configFlag := fs.String("config", "config.toml", "Path to configuration file in TOML syntax.")
	watchFlag := fs.String("watch", "", "Optional path to a blob to periodically re-read and republish stats for.")
	intervalFlag := fs.Duration("interval", 10*time.Second, "How often to re-read -watch.")
	fs.Parse(args)

	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		return err
	}

	env, err := config.LoadEnv()
	if err != nil {
		level.Warn(logger).Log("msg", "no .env file found, serving metrics without a bearer token", "err", err)
		env = &config.Env{}
	}

	crdt.SetCompression(conf.Compression())
	instrumented := metrics.New(conf.Metrics.Namespace, conf.Metrics.Subsystem)

	if *watchFlag != "" {
		go watchAndObserve(logger, instrumented, *watchFlag, *intervalFlag)
	}

	handler := promhttp.Handler()
	if env.MetricsToken != "" {
		handler = requireBearerToken(env.MetricsToken, handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	level.Info(logger).Log("msg", "serving prometheus metrics", "addr", *addrFlag)
	return http.ListenAndServe(*addrFlag, mux)
}

// watchAndObserve re-reads path every interval and republishes its stats
// through in, until the process exits. Decode failures are logged and
// skipped rather than fatal, since the file may be mid-write.
func watchAndObserve(logger log.Logger, in *metrics.Instrumented, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		v, err := loadValue(path)
		if err != nil {
			level.Warn(logger).Log("msg", "failed to read watched blob", "path", path, "err", err)
			continue
		}
		in.Observe(v)
	}
}

// requireBearerToken wraps next so that requests missing an "Authorization:
// Bearer <token>" header matching token are rejected.
func requireBearerToken(token string, next http.Handler) http.Handler {
	want := "Bearer " + token
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
