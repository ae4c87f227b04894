// Command cli is the operator tool for the credit ledger. It talks to the
// store directly with the same configuration as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/kaushal/skillcredits/infra/initializer"
	"github.com/kaushal/skillcredits/pkg/app"
	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain/transaction"
	"github.com/kaushal/skillcredits/pkg/service/ledger"
	"github.com/kaushal/skillcredits/pkg/utils"
	"golang.org/x/term"
)

const usage = `Usage: cli <command> [arguments]

Commands:
  balance <user_id>                         show balance and level
  history <user_id> [limit]                 list recent transactions
  stats   <user_id>                         show earning stats
  award   <user_id> <amount> <category> [key]  credit an account
  pending [limit]                           list pending conversions
  hash-key [key]                            bcrypt an internal service key
  token   <user_id>                         sign a bearer token for testing
`

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgCyan, color.Bold)
)

func main() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		errColor.Fprintln(os.Stderr, "Error:", err) //nolint: errcheck
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}
	if args[0] == "hash-key" {
		return hashKey(args[1:], out)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return err
	}
	a := app.New(deps, cfg)
	defer a.Close() //nolint: errcheck
	return (&cli{app: a, out: out}).dispatch(ctx, args)
}

type cli struct {
	app *app.App
	out io.Writer
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "balance":
		return c.balance(ctx, rest)
	case "history":
		return c.history(ctx, rest)
	case "stats":
		return c.stats(ctx, rest)
	case "award":
		return c.award(ctx, rest)
	case "pending":
		return c.pending(ctx, rest)
	case "token":
		return c.token(ctx, rest)
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) balance(ctx context.Context, args []string) error {
	userID, err := userArg(args, "balance <user_id>")
	if err != nil {
		return err
	}
	acc, err := c.app.LedgerService.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	okColor.Fprintf(c.out, "%s balance: %d credits (level %d)\n", acc.UserID, acc.CreditBalance, acc.Level) //nolint: errcheck
	return nil
}

func (c *cli) history(ctx context.Context, args []string) error {
	userID, err := userArg(args, "history <user_id> [limit]")
	if err != nil {
		return err
	}
	limit, err := optionalInt(args, 1, ledger.DefaultHistoryLimit)
	if err != nil {
		return err
	}
	txs, err := c.app.LedgerService.GetUserTransactions(ctx, userID, limit, 0)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	headColor.Fprintln(w, "CREATED\tTYPE\tCATEGORY\tAMOUNT\tSTATUS") //nolint: errcheck
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%+d\t%s\n",
			tx.CreatedAt.Format("2006-01-02 15:04:05"), tx.Type, tx.Category, tx.Delta(), tx.Status)
	}
	return w.Flush()
}

func (c *cli) stats(ctx context.Context, args []string) error {
	userID, err := userArg(args, "stats <user_id>")
	if err != nil {
		return err
	}
	s, err := c.app.LedgerService.GetUserEarningStats(ctx, userID)
	if err != nil {
		return err
	}
	headColor.Fprintf(c.out, "Stats for %s\n", userID) //nolint: errcheck
	fmt.Fprintf(c.out, "  balance:         %d\n", s.Balance)
	fmt.Fprintf(c.out, "  level:           %d\n", s.Level)
	fmt.Fprintf(c.out, "  total earned:    %d\n", s.TotalEarned)
	fmt.Fprintf(c.out, "  total spent:     %d\n", s.TotalSpent)
	fmt.Fprintf(c.out, "  weekly earnings: %d\n", s.WeeklyEarnings)
	return nil
}

func (c *cli) award(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: award <user_id> <amount> <category> [idempotency_key]")
	}
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	key := ""
	if len(args) > 3 {
		key = args[3]
	}
	res, err := c.app.LedgerService.Earn(ctx, ledger.EarnParams{
		UserID:         userID,
		Amount:         amount,
		Category:       transaction.Category(args[2]),
		Description:    "Manual award",
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}
	if res.Duplicate {
		color.New(color.FgYellow).Fprintf(c.out, "Already awarded as %s; nothing changed\n", res.Transaction.ID) //nolint: errcheck
		return nil
	}
	okColor.Fprintf(c.out, "Awarded %d credits to %s. Balance: %d, level %d\n", amount, userID, res.Balance, res.Level) //nolint: errcheck
	if res.LevelUp {
		okColor.Fprintln(c.out, "Level up!") //nolint: errcheck
	}
	return nil
}

func (c *cli) pending(ctx context.Context, args []string) error {
	limit, err := optionalInt(args, 0, 0)
	if err != nil {
		return err
	}
	reqs, err := c.app.ConversionService.ListPending(ctx, limit)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Fprintln(c.out, "No pending conversions")
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	headColor.Fprintln(w, "ID\tUSER\tCREDITS\tAMOUNT\tWALLET\tCREATED") //nolint: errcheck
	for _, r := range reqs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s %s\t%s\t%s\n",
			r.ID, r.UserID, r.CreditsAmount, r.CryptoAmount.String(), r.CryptoType,
			r.WalletAddress, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func (c *cli) token(ctx context.Context, args []string) error {
	userID, err := userArg(args, "token <user_id>")
	if err != nil {
		return err
	}
	token, err := c.app.AuthService.GenerateToken(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, token)
	return nil
}

// hashKey prints the AUTH_INTERNAL_KEY_HASH value for a key. Without an
// argument the key is read from the terminal without echo.
func hashKey(args []string, out io.Writer) error {
	key := ""
	if len(args) > 0 {
		key = args[0]
	} else {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return errors.New("usage: hash-key <key> (or run in a terminal to be prompted)")
		}
		fmt.Fprint(os.Stderr, "Internal key: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		key = string(raw)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key must not be empty")
	}
	hash, err := utils.HashKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "AUTH_INTERNAL_KEY_HASH=%s\n", hash)
	return nil
}

func userArg(args []string, usage string) (uuid.UUID, error) {
	if len(args) < 1 {
		return uuid.Nil, errors.New("usage: " + usage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id: %w", err)
	}
	return id, nil
}

func optionalInt(args []string, i, def int) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	return n, nil
}
