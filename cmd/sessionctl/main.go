// Command sessionctl drives a session controller from the shell: log in and
// out against a storefront backend, inspect the persisted session, check
// route access and measure guard throughput.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/config"
	"github.com/MrEthical07/goSession/guard"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/role"
	"github.com/MrEthical07/goSession/store"
	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

const usage = `usage: sessionctl [global flags] <command> [flags]

commands:
  status     restore the stored session and print it
  login      log in and persist the session
  logout     clear the stored session
  register   create an account
  guard      check a path against a route table
  lint       print configuration warnings
  bench      measure concurrent guard checks

global flags:
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type globals struct {
	configPath string
	baseURL    string
	driver     string
	storePath  string
	redisAddr  string
	embedded   bool
	debug      bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var g globals
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.configPath, "config", "", "config file (yaml, json or toml); GOSESSION_* env vars override it")
	fs.StringVar(&g.baseURL, "base-url", "", "backend base URL; overrides gateway.base_url")
	fs.StringVar(&g.driver, "store", "", "credential store driver: memory, file, badger or redis")
	fs.StringVar(&g.storePath, "store-path", "", "file path or badger directory")
	fs.StringVar(&g.redisAddr, "redis-addr", "", "redis address for the redis store")
	fs.BoolVar(&g.embedded, "embedded-redis", false, "run the redis store against an in-process miniredis")
	fs.BoolVar(&g.debug, "debug", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	cmds := map[string]func(context.Context, *env, []string) error{
		"status":   cmdStatus,
		"login":    cmdLogin,
		"logout":   cmdLogout,
		"register": cmdRegister,
		"guard":    cmdGuard,
		"lint":     cmdLint,
		"bench":    cmdBench,
	}
	fn, ok := cmds[cmd]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}

	e, err := setup(g, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "sessionctl: %v\n", err)
		return 1
	}
	defer e.close()

	if err := fn(ctx, e, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "sessionctl %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

// env holds what every command shares.
type env struct {
	cfg    goSession.Config
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer

	cleanup []func()
}

func (e *env) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
	_ = e.logger.Sync()
}

func setup(g globals, stdout, stderr io.Writer) (*env, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(g.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	e := &env{cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}

	if g.embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		e.cleanup = append(e.cleanup, mr.Close)
		e.cfg.Store.Driver = store.DriverRedis
		e.cfg.Store.RedisAddr = mr.Addr()
		logger.Info("using miniredis", zap.String("addr", mr.Addr()))
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func loadConfig(g globals) (goSession.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return goSession.Config{}, err
	}
	if g.baseURL != "" {
		cfg.Gateway.BaseURL = g.baseURL
	}
	if g.driver != "" {
		cfg.Store.Driver = g.driver
	}
	if g.storePath != "" {
		cfg.Store.Path = g.storePath
	}
	if g.redisAddr != "" {
		cfg.Store.RedisAddr = g.redisAddr
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		zc = zap.NewDevelopmentConfig()
	}
	return zc.Build()
}

// controller builds a controller over the configured store and restores the
// persisted session.
func (e *env) controller(ctx context.Context) (*goSession.Controller, error) {
	c, err := goSession.New().
		WithConfig(e.cfg).
		WithLogger(e.logger).
		Build()
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func cmdStatus(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := e.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	printSession(e.stdout, c)
	return nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password; GOSESSION_PASSWORD is used when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw := *password
	if pw == "" {
		pw = os.Getenv("GOSESSION_PASSWORD")
	}
	if *username == "" || pw == "" {
		return errors.New("username and password are required")
	}

	c, err := e.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.Login(ctx, *username, pw)
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintln(e.stdout, res.Message)
	printSession(e.stdout, c)
	return nil
}

func cmdLogout(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := e.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	c.Logout(ctx)
	fmt.Fprintln(e.stdout, "logged out")
	return nil
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password; GOSESSION_PASSWORD is used when empty")
	roleName := fs.String("role", string(role.Customer), "customer, merchant or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw := *password
	if pw == "" {
		pw = os.Getenv("GOSESSION_PASSWORD")
	}
	if *username == "" || pw == "" {
		return errors.New("username and password are required")
	}

	c, err := goSession.New().WithConfig(e.cfg).WithLogger(e.logger).Build()
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.Register(ctx, *username, pw, role.Normalize(*roleName))
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintln(e.stdout, res.Message)
	return nil
}

func cmdGuard(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("guard", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	routesPath := fs.String("routes", "", "route table file (yaml or json)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *routesPath == "" || fs.NArg() == 0 {
		return errors.New("usage: guard -routes <file> <path>...")
	}

	routes, err := readRoutes(*routesPath)
	if err != nil {
		return err
	}

	c, err := e.controller(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	g := c.NewGuard()
	for _, path := range fs.Args() {
		d := g.Check(ctx, routes.Lookup(path))
		if d.Allowed {
			fmt.Fprintf(e.stdout, "%s\tallow\n", path)
			continue
		}
		fmt.Fprintf(e.stdout, "%s\tdeny\t%s\t-> %s\n", path, d.Reason, d.Redirect)
	}
	return nil
}

func cmdLint(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	warnings := e.cfg.Lint()
	if len(warnings) == 0 {
		fmt.Fprintln(e.stdout, "no warnings")
		return nil
	}
	for _, w := range warnings {
		fmt.Fprintf(e.stdout, "%s\t%s\n", w.Code, w.Message)
	}
	return nil
}

func readRoutes(path string) (guard.Routes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes: %w", err)
	}
	return guard.ParseRoutes(data)
}

func printSession(w io.Writer, c *goSession.Controller) {
	snap := c.Snapshot()
	fmt.Fprintf(w, "phase:     %s\n", c.Phase())
	fmt.Fprintf(w, "logged in: %t\n", c.IsLoggedIn())
	if !snap.HasToken() {
		return
	}
	fmt.Fprintf(w, "username:  %s\n", snap.Username)
	fmt.Fprintf(w, "role:      %s\n", snap.Role)
	if snap.Profile != nil {
		fmt.Fprintf(w, "user id:   %s\n", snap.Profile.ID)
	}
	if claims, err := jwt.Decode(snap.Token); err == nil {
		if exp, ok := claims.Expiry(); ok {
			fmt.Fprintf(w, "expires:   %s\n", exp.Format(time.RFC3339))
		}
	}
}
