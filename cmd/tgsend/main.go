package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/danhigham/tgsend/internal/app"
	"github.com/danhigham/tgsend/internal/auth"
	"github.com/danhigham/tgsend/internal/config"
	"github.com/danhigham/tgsend/internal/directory"
	"github.com/danhigham/tgsend/internal/domain"
	"github.com/danhigham/tgsend/internal/pin"
	"github.com/danhigham/tgsend/internal/state"
	"github.com/danhigham/tgsend/internal/telegram"
	"github.com/danhigham/tgsend/internal/ui"
)

// commandTimeout bounds every non-interactive provider call.
const commandTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	cfgDir := config.Dir()
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", cfgDir, err)
		return 1
	}

	logger := newLogger(cfgDir)
	defer logger.Sync()

	switch args[0] {
	case "config":
		return cmdConfig(cfgDir, logger, args[1:])
	case "status":
		return cmdStatus(cfgDir, logger)
	case "auth":
		return cmdAuth(cfgDir, logger, args[1:])
	case "contacts":
		return cmdContacts(cfgDir, logger, args[1:])
	case "send":
		return cmdSend(cfgDir, logger, args[1:])
	case "pin":
		return cmdPin(cfgDir, logger, args[1:], true)
	case "unpin":
		return cmdPin(cfgDir, logger, args[1:], false)
	case "pinned":
		return cmdPinned(cfgDir, logger)
	case "help", "-h", "--help":
		usage()
		return 0
	default:
		if strings.HasPrefix(args[0], "-") {
			usage()
			return 2
		}
		// A bare file path means interactive mode.
		return cmdInteractive(cfgDir, logger, args[0])
	}
}

// buildApp assembles the core components. It fails with NotConfigured
// before touching the network when no credentials are saved.
func buildApp(cfgDir string, logger *zap.Logger, limit int) (*app.App, *telegram.GotdTransport, error) {
	credStore := config.NewCredentialStore(cfgDir)
	creds, err := credStore.Load()
	if err != nil {
		return nil, nil, err
	}

	st := state.New(cfgDir, logger)
	transport := telegram.NewGotdTransport(creds.APIID, creds.APIHash, cfgDir, logger.Named("gotd"))
	mgr, err := auth.NewManager(st, transport, logger.Named("auth"))
	if err != nil {
		return nil, nil, err
	}
	pins := pin.NewStore(st)
	dir := directory.New(transport, pins, mgr.Authorized, limit, logger.Named("directory"))

	a := &app.App{
		Creds:     credStore,
		Auth:      mgr,
		Directory: dir,
		Pins:      pins,
		Sender:    transport,
		Logger:    logger,
	}
	return a, transport, nil
}

// connected runs fn inside a live provider connection with the command
// timeout applied.
func connected(transport *telegram.GotdTransport, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return transport.Run(ctx, fn)
}

func cmdConfig(cfgDir string, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	apiID := fs.Int("api-id", 0, "Telegram API ID")
	apiHash := fs.String("api-hash", "", "Telegram API hash")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a := &app.App{Creds: config.NewCredentialStore(cfgDir), Logger: logger}
	if *apiID == 0 && *apiHash == "" {
		res, err := a.ConfigStatus()
		if err != nil {
			return fail(err)
		}
		return emit(res)
	}

	res, err := a.Configure(*apiID, *apiHash)
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdStatus(cfgDir string, logger *zap.Logger) int {
	if _, err := config.NewCredentialStore(cfgDir).Load(); err != nil {
		if domain.IsKind(err, domain.ErrNotConfigured) {
			return emit(app.StatusResult{Success: true})
		}
		return fail(err)
	}

	a, transport, err := buildApp(cfgDir, logger, 0)
	if err != nil {
		return fail(err)
	}
	if !a.Auth.Authorized() {
		return emit(app.StatusResult{Success: true, Configured: true})
	}

	var res app.StatusResult
	err = connected(transport, func(ctx context.Context) error {
		res, err = a.Status(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdAuth(cfgDir string, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)
	phone := fs.String("phone", "", "phone number with country code")
	code := fs.String("code", "", "login code from the Telegram app")
	password := fs.String("password", "", "2FA password")
	codeHash := fs.String("phone-code-hash", "", "hash from the code_sent response")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, transport, err := buildApp(cfgDir, logger, 0)
	if err != nil {
		return fail(err)
	}

	var res app.AuthResult
	err = connected(transport, func(ctx context.Context) error {
		res, err = a.Authenticate(ctx, *phone, *code, *password, *codeHash)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdContacts(cfgDir string, logger *zap.Logger, args []string) int {
	fs := flag.NewFlagSet("contacts", flag.ContinueOnError)
	search := fs.String("search", "", "fuzzy search query")
	pinnedOnly := fs.Bool("pinned-only", false, "only pinned contacts")
	limit := fs.Int("limit", directory.DefaultLimit, "max contacts to fetch")
	refresh := fs.Bool("refresh", false, "bypass the contact cache")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, transport, err := buildApp(cfgDir, logger, *limit)
	if err != nil {
		return fail(err)
	}
	if !a.Auth.Authorized() {
		return fail(domain.NewError(domain.ErrNotAuthenticated,
			"not authenticated; run 'tgsend auth' first"))
	}

	var res app.ContactsResult
	err = connected(transport, func(ctx context.Context) error {
		res, err = a.Contacts(ctx, *search, *pinnedOnly, *refresh)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdSend(cfgDir string, logger *zap.Logger, args []string) int {
	var file string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		file = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	to := fs.String("to", "", "recipient name (fuzzy matched)")
	toID := fs.Int64("to-id", 0, "recipient id")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if file == "" && fs.NArg() > 0 {
		file = fs.Arg(0)
	}
	if file == "" {
		return fail(domain.NewError(domain.ErrNotFound, "no file given; usage: tgsend send FILE --to NAME"))
	}

	a, transport, err := buildApp(cfgDir, logger, 0)
	if err != nil {
		return fail(err)
	}
	if !a.Auth.Authorized() {
		return fail(domain.NewError(domain.ErrNotAuthenticated,
			"not authenticated; run 'tgsend auth' first"))
	}

	var res app.SendResult
	err = connected(transport, func(ctx context.Context) error {
		res, err = a.Send(ctx, file, *to, *toID)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdPin(cfgDir string, logger *zap.Logger, args []string, pinIt bool) int {
	if len(args) == 0 {
		return fail(domain.NewError(domain.ErrNotFound, "no contact given; usage: tgsend pin NAME_OR_ID"))
	}
	ref := args[0]

	a, transport, err := buildApp(cfgDir, logger, 0)
	if err != nil {
		return fail(err)
	}
	if !a.Auth.Authorized() {
		return fail(domain.NewError(domain.ErrNotAuthenticated,
			"not authenticated; run 'tgsend auth' first"))
	}

	var res app.PinResult
	err = connected(transport, func(ctx context.Context) error {
		if pinIt {
			res, err = a.PinContact(ctx, ref)
		} else {
			res, err = a.UnpinContact(ctx, ref)
		}
		return err
	})
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdPinned(cfgDir string, logger *zap.Logger) int {
	a, transport, err := buildApp(cfgDir, logger, 0)
	if err != nil {
		return fail(err)
	}
	if !a.Auth.Authorized() {
		return fail(domain.NewError(domain.ErrNotAuthenticated,
			"not authenticated; run 'tgsend auth' first"))
	}

	var res app.ContactsResult
	err = connected(transport, func(ctx context.Context) error {
		res, err = a.Pinned(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}
	return emit(res)
}

func cmdInteractive(cfgDir string, logger *zap.Logger, file string) int {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		fmt.Fprintf(os.Stderr, "Not a file: %s\n", file)
		return 1
	}

	a, transport, err := buildApp(cfgDir, logger, 0)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "No API credentials configured.")
			fmt.Fprintln(os.Stderr, "Get them at https://my.telegram.org, then run:")
			fmt.Fprintln(os.Stderr, "  tgsend config --api-id ID --api-hash HASH")
			return 1
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}

	// Interactive sessions get no deadline; login prompts take as long as
	// the user takes.
	runErr := transport.Run(context.Background(), func(ctx context.Context) error {
		st, err := a.Auth.Status(ctx)
		if err != nil && !domain.IsKind(err, domain.ErrNotAuthenticated) {
			return err
		}
		if !st.Authenticated {
			if err := interactiveLogin(ctx, a); err != nil {
				return err
			}
		}

		if _, err := a.Directory.Fetch(ctx, false); err != nil {
			return err
		}
		search := func(query string) []directory.Entry {
			entries, err := a.Directory.Listing(ctx, query, false)
			if err != nil {
				logger.Warn("listing failed", zap.Error(err))
				return nil
			}
			return entries
		}

		choice, ok, err := ui.Pick(search, filepath.Base(file), info.Size())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Cancelled")
			return nil
		}

		fmt.Fprintf(os.Stderr, "Sending %s to %s...\n", filepath.Base(file), choice.Name)
		res, err := a.Send(ctx, file, "", choice.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Sent (message id %d)\n", res.MessageID)
		return nil
	})
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "Error:", runErr)
		return 1
	}
	return 0
}

// interactiveLogin walks the login state machine with terminal prompts.
func interactiveLogin(ctx context.Context, a *app.App) error {
	reader := bufio.NewReader(os.Stdin)

	if a.Auth.Phase() != domain.PhasePasswordRequired {
		phone, err := prompt(reader, "Phone number (with country code): ")
		if err != nil {
			return err
		}
		if _, err := a.Auth.RequestCode(ctx, phone); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "A code was sent to your Telegram app.")

		code, err := prompt(reader, "Login code: ")
		if err != nil {
			return err
		}
		status, _, err := a.Auth.SubmitCode(ctx, "", code, "")
		if err != nil {
			return err
		}
		if status != auth.StatusPasswordRequired {
			return nil
		}
		fmt.Fprintln(os.Stderr, "Your account has 2FA enabled.")
	}

	fmt.Fprint(os.Stderr, "2FA password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	_, err = a.Auth.SubmitPassword(ctx, string(pw))
	return err
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func emit(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func fail(err error) int {
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = "Error"
	}
	emit(failure{Error: kind, Message: err.Error()})
	return 1
}

// newLogger writes to a file in the state dir; stdout stays reserved for
// JSON output.
func newLogger(cfgDir string) *zap.Logger {
	logCfg := zap.NewDevelopmentConfig()
	logPath := filepath.Join(cfgDir, "tgsend.log")
	logCfg.OutputPaths = []string{logPath}
	logCfg.ErrorOutputPaths = []string{logPath}
	logger, err := logCfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func usage() {
	fmt.Fprint(os.Stderr, `tgsend - send files to Telegram contacts

Interactive:
  tgsend FILE                                  pick a contact and send

Commands (JSON output):
  tgsend config --api-id ID --api-hash HASH    save API credentials
  tgsend status                                check auth status
  tgsend auth --phone +15551234567             request a login code
  tgsend auth --phone +15551234567 --code N    redeem the code
  tgsend auth --password SECRET                complete a 2FA login
  tgsend contacts [--search Q] [--pinned-only] list or search contacts
  tgsend send FILE --to NAME | --to-id ID      send a file
  tgsend pin NAME_OR_ID                        pin a contact
  tgsend unpin NAME_OR_ID                      unpin a contact
  tgsend pinned                                list pinned contacts
`)
}
