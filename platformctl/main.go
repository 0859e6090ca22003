package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/term"

	"github.com/docopt/docopt-go"

	"github.com/playgrid/platform/platform"
)

const PlatformCtlVersion = "0.1.0"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Platform control.

The default urls are:
    api_url: https://api.playgrid.dev
    realtime_url: wss://realtime.playgrid.dev

Usage:
    platformctl login [--api_url=<api_url>]
        --game_id=<game_id>
        [--user_auth=<user_auth>]
        [--guest]
    platformctl save [--api_url=<api_url>] --jwt=<jwt>
        [--interval=<interval>]
        [<data>]
    platformctl load [--api_url=<api_url>] --jwt=<jwt> [<key>...]
    platformctl watch [--api_url=<api_url>] [--realtime_url=<realtime_url>]
        --jwt=<jwt>
        [--interval=<interval>]
    platformctl locale [--api_url=<api_url>] --jwt=<jwt> [<locale>]
    platformctl ad [--api_url=<api_url>] --jwt=<jwt> <placement>

Options:
    -h --help                      Show this screen.
    --version                      Show version.
    --api_url=<api_url>
    --realtime_url=<realtime_url>
    --game_id=<game_id>
    --user_auth=<user_auth>        Email or phone. Omit for guest login.
    --guest                        Log in as a guest player.
    --jwt=<jwt>                    Your platform session JWT.
    --interval=<interval>          Minimum seconds between save writes [default: 60].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], PlatformCtlVersion)
	if err != nil {
		panic(err)
	}

	if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if save_, _ := opts.Bool("save"); save_ {
		save(opts)
	} else if load_, _ := opts.Bool("load"); load_ {
		load(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	} else if locale_, _ := opts.Bool("locale"); locale_ {
		locale(opts)
	} else if ad_, _ := opts.Bool("ad"); ad_ {
		ad(opts)
	}
}

func apiUrl(opts docopt.Opts) string {
	if apiUrl, err := opts.String("--api_url"); err == nil && apiUrl != "" {
		return apiUrl
	}
	return "https://api.playgrid.dev"
}

func realtimeUrl(opts docopt.Opts) string {
	if realtimeUrl, err := opts.String("--realtime_url"); err == nil && realtimeUrl != "" {
		return realtimeUrl
	}
	return "wss://realtime.playgrid.dev"
}

func saveInterval(opts docopt.Opts) time.Duration {
	if seconds, err := opts.Int("--interval"); err == nil && 0 < seconds {
		return time.Duration(seconds) * time.Second
	}
	return 60 * time.Second
}

func newSession(ctx context.Context, opts docopt.Opts) (*platform.PlatformApi, *platform.SessionController) {
	api := platform.NewPlatformApiWithContext(ctx, apiUrl(opts))
	session := platform.NewSessionController(ctx, api)

	jwt, err := opts.String("--jwt")
	if err != nil {
		Err.Fatalf("Missing --jwt: %s", err)
	}
	if err := session.Resume(jwt); err != nil {
		Err.Fatalf("Could not resume session: %s", err)
	}
	return api, session
}

func login(opts docopt.Opts) {
	ctx := context.Background()
	api := platform.NewPlatformApiWithContext(ctx, apiUrl(opts))

	gameId, err := opts.String("--game_id")
	if err != nil {
		Err.Fatalf("Missing --game_id: %s", err)
	}

	args := &platform.AuthLoginArgs{
		GameId:   gameId,
		DeviceId: deviceId(),
	}
	if userAuth, err := opts.String("--user_auth"); err == nil && userAuth != "" {
		args.UserAuth = userAuth
		fmt.Print("Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			Err.Fatalf("Could not read password: %s", err)
		}
		args.Password = string(passwordBytes)
	} else {
		args.Guest = true
	}

	session := platform.NewSessionController(ctx, api)
	result, err := session.LoginSync(args)
	if err != nil {
		Err.Fatalf("Login failed: %s", err)
	}

	if result.Player != nil {
		Out.Printf("player_id: %s", result.Player.PlayerId)
	}
	Out.Printf("%s", result.SessionJwt)
}

func deviceId() string {
	return platform.NewId().String()
}

func save(opts docopt.Opts) {
	ctx := context.Background()
	api, session := newSession(ctx, opts)

	scheduler := platform.NewSaveScheduler(
		ctx,
		api,
		session,
		platform.NewSystemClock(),
		&platform.SaveSchedulerSettings{
			SaveInterval: saveInterval(opts),
		},
	)
	defer scheduler.Close()

	data, _ := opts.String("<data>")
	if data == "" {
		dataBytes, err := os.ReadFile("/dev/stdin")
		if err != nil {
			Err.Fatalf("Could not read save data: %s", err)
		}
		data = string(dataBytes)
	}

	result, err := scheduler.RequestSaveSync([]byte(data))
	if err != nil {
		Err.Fatalf("Save failed: %s", err)
	}
	Out.Printf("committed: %t", result.Committed)
}

func load(opts docopt.Opts) {
	ctx := context.Background()
	api, session := newSession(ctx, opts)

	scheduler := platform.NewSaveSchedulerWithDefaults(ctx, api, session)
	defer scheduler.Close()

	keys := []string{}
	if keys_, ok := opts["<key>"].([]string); ok {
		keys = keys_
	}

	result, err := scheduler.LoadSync(keys)
	if err != nil {
		Err.Fatalf("Load failed: %s", err)
	}

	data := map[string]any{}
	if err := json.Unmarshal(result.Data, &data); err != nil {
		// not an object, print raw
		Out.Printf("%s", string(result.Data))
		return
	}
	dataKeys := maps.Keys(data)
	sort.Strings(dataKeys)
	for _, key := range dataKeys {
		valueBytes, _ := json.Marshal(data[key])
		Out.Printf("%s: %s", key, string(valueBytes))
	}
}

// reads save payloads from stdin, one json value per line, and runs
// them through the throttled scheduler. ctrl-c flushes any pending
// save before exit.
func watch(opts docopt.Opts) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, session := newSession(ctx, opts)

	lifecycle := platform.NewLifecycleMonitorWithDefaults(ctx)
	defer lifecycle.Close()

	scheduler := platform.NewSaveScheduler(
		ctx,
		api,
		session,
		platform.NewSystemClock(),
		&platform.SaveSchedulerSettings{
			SaveInterval: saveInterval(opts),
		},
	)
	defer scheduler.Close()

	realtime := platform.NewRealtimeChannelWithDefaults(ctx, realtimeUrl(opts), session, lifecycle)
	defer realtime.Close()

	done := make(chan struct{})
	var doneOnce sync.Once
	lifecycle.AddTerminationRiskCallback(func() {
		if _, err := scheduler.FlushSync(); err != nil {
			Err.Printf("Flush failed: %s", err)
		} else {
			Out.Printf("flushed")
		}
		doneOnce.Do(func() {
			close(done)
		})
	})

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			err := scheduler.RequestSave([]byte(line), platform.NewApiCallback[*platform.SaveResult](func(result *platform.SaveResult, err error) {
				if err != nil {
					Err.Printf("Save failed: %s", err)
				} else {
					Out.Printf("committed: %t", result.Committed)
				}
			}))
			if err != nil {
				Err.Printf("Save rejected: %s", err)
			}
		}
	}()

	<-done
}

func locale(opts docopt.Opts) {
	ctx := context.Background()
	api, session := newSession(ctx, opts)

	localeController := platform.NewLocaleController(ctx, api, session)
	defer localeController.Close()

	if locale_, _ := opts.String("<locale>"); locale_ != "" {
		locale, err := localeController.SetLocaleSync(locale_)
		if err != nil {
			Err.Fatalf("Set locale failed: %s", err)
		}
		Out.Printf("%s", locale)
		return
	}

	locale, err := localeController.LocaleSync()
	if err != nil {
		Err.Fatalf("Get locale failed: %s", err)
	}
	Out.Printf("%s", locale)
}

func ad(opts docopt.Opts) {
	ctx := context.Background()
	api, session := newSession(ctx, opts)

	ads := platform.NewAdController(ctx, api, session)
	defer ads.Close()

	placement, err := opts.String("<placement>")
	if err != nil {
		Err.Fatalf("Missing placement: %s", err)
	}

	result, err := ads.ShowRewardedSync(placement)
	if err != nil {
		Err.Fatalf("Ad failed: %s", err)
	}
	Out.Printf("ad_id: %s reward_granted: %t", result.AdId, result.RewardGranted)
}
