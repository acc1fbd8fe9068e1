// Command watertime is a command-line client for the WaterTime API.
//
// Push tokens queued with "device queue" are kept in a local SQLite file
// and registered on the next successful login.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/devicesync"
	"github.com/watertime/watertime/pkg/client"
)

const usage = `usage: watertime [flags] <command> [args]

commands:
  register <email> <password> [name]
  login <email> <password>     sign in and register queued devices
  logout
  log <ml> [source]            record an intake
  today
  history [days]
  weekly [YYYY-MM-DD]
  monthly [YYYY-MM-DD]
  goal <ml>
  device queue <token> <ios|android> [model]
  device pending
  device drop <token>
  device sync
  devices
  notifications [limit]
  test-push
`

type session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type app struct {
	client  *client.Client
	queue   *devicesync.Queue
	dataDir string
	out     io.Writer
}

func main() {
	apiURL := flag.String("api", envOr("WATERTIME_API_URL", "http://localhost:8080"), "API base URL")
	dataDir := flag.String("data", defaultDataDir(), "directory for session and pending devices")
	timeout := flag.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*apiURL, *dataDir, *timeout, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "watertime:", err)
		os.Exit(1)
	}
}

func run(apiURL, dataDir string, timeout time.Duration, args []string) error {
	store, err := devicesync.OpenSQLiteStore(filepath.Join(dataDir, "pending.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	a := &app{
		client:  client.New(client.Config{BaseURL: apiURL, Timeout: timeout}),
		queue:   devicesync.NewQueue(store, zerolog.New(os.Stderr).Level(zerolog.WarnLevel)),
		dataDir: dataDir,
		out:     os.Stdout,
	}
	if err := a.loadSession(); err != nil {
		return err
	}

	return a.dispatch(context.Background(), args)
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register":
		if len(rest) < 2 {
			return errors.New("register needs <email> <password>")
		}
		name := ""
		if len(rest) > 2 {
			name = rest[2]
		}
		resp, err := a.client.Register(ctx, rest[0], rest[1], name)
		if err != nil {
			return err
		}
		if err := a.saveSession(); err != nil {
			return err
		}
		return a.print(resp.User)

	case "login":
		if len(rest) < 2 {
			return errors.New("login needs <email> <password>")
		}
		resp, result, err := a.client.LoginAndSync(ctx, rest[0], rest[1], a.queue)
		if resp != nil {
			if saveErr := a.saveSession(); saveErr != nil {
				return saveErr
			}
		}
		if err != nil {
			return err
		}
		if result.Registered > 0 || result.Failed > 0 {
			fmt.Fprintf(a.out, "devices registered: %d, still pending: %d\n", result.Registered, result.Failed)
		}
		return a.print(resp.User)

	case "logout":
		if err := a.client.Logout(ctx); err != nil {
			return err
		}
		return a.saveSession()

	case "log":
		if len(rest) < 1 {
			return errors.New("log needs <ml>")
		}
		amount, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q", rest[0])
		}
		source := ""
		if len(rest) > 1 {
			source = rest[1]
		}
		return a.printResult(a.client.LogIntake(ctx, amount, source, nil))

	case "today":
		return a.printResult(a.client.Today(ctx))

	case "history":
		days := 0
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				return fmt.Errorf("invalid days %q", rest[0])
			}
			days = n
		}
		return a.printResult(a.client.History(ctx, days))

	case "weekly", "monthly":
		var start *time.Time
		if len(rest) > 0 {
			t, err := time.ParseInLocation("2006-01-02", rest[0], time.Local)
			if err != nil {
				return fmt.Errorf("invalid date %q", rest[0])
			}
			start = &t
		}
		if cmd == "weekly" {
			return a.printResult(a.client.Weekly(ctx, start))
		}
		return a.printResult(a.client.Monthly(ctx, start))

	case "goal":
		if len(rest) < 1 {
			return errors.New("goal needs <ml>")
		}
		goal, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid goal %q", rest[0])
		}
		return a.printResult(a.client.UpdateGoal(ctx, goal))

	case "device":
		return a.device(ctx, rest)

	case "devices":
		return a.printResult(a.client.Devices(ctx))

	case "notifications":
		limit := 0
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil {
				return fmt.Errorf("invalid limit %q", rest[0])
			}
			limit = n
		}
		return a.printResult(a.client.Notifications(ctx, limit))

	case "test-push":
		return a.printResult(a.client.SendTestNotification(ctx))

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) device(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("device needs a subcommand")
	}

	switch args[0] {
	case "queue":
		if len(args) < 3 {
			return errors.New("device queue needs <token> <platform>")
		}
		info := devicesync.DeviceInfo{Platform: args[2]}
		if len(args) > 3 {
			info.Model = args[3]
		}
		entry, err := a.queue.Enqueue(ctx, args[1], info)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "queued #%d\n", entry.Seq)
		return nil

	case "pending":
		entries, err := a.queue.Pending(ctx)
		if err != nil {
			return err
		}
		return a.print(entries)

	case "drop":
		if len(args) < 2 {
			return errors.New("device drop needs <token>")
		}
		n, err := a.queue.DequeueMatching(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "removed %d\n", n)
		return nil

	case "sync":
		result, err := a.queue.Flush(ctx, a.client.RegisterPending)
		if err != nil {
			return err
		}
		for _, e := range result.Errors {
			fmt.Fprintln(a.out, "failed:", e)
		}
		fmt.Fprintf(a.out, "devices registered: %d, still pending: %d\n", result.Registered, result.Failed)
		return nil

	default:
		return fmt.Errorf("unknown device subcommand %q", args[0])
	}
}

func (a *app) sessionPath() string {
	return filepath.Join(a.dataDir, "session.json")
}

func (a *app) loadSession() error {
	data, err := os.ReadFile(a.sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parsing session: %w", err)
	}
	a.client.SetTokens(s.AccessToken, s.RefreshToken)
	return nil
}

func (a *app) saveSession() error {
	access, refresh := a.client.Tokens()
	data, err := json.Marshal(session{AccessToken: access, RefreshToken: refresh})
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.sessionPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (a *app) printResult(v interface{}, err error) error {
	if err != nil {
		return err
	}
	return a.print(v)
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "watertime")
	}
	return ".watertime"
}
