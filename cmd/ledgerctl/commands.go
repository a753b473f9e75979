package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/app"
	"github.com/josh-kwaku/ledger-engine/internal/domain"
	"github.com/josh-kwaku/ledger-engine/internal/handler"
	"github.com/josh-kwaku/ledger-engine/internal/service/ledger"
)

// uuidFlag and moneyFlag parse at flag time so a bad value is a usage error.
type uuidFlag struct {
	id  uuid.UUID
	set bool
}

func (f *uuidFlag) String() string {
	if !f.set {
		return ""
	}
	return f.id.String()
}

func (f *uuidFlag) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	f.id, f.set = id, true
	return nil
}

type moneyFlag struct {
	amount domain.Money
	set    bool
}

func (f *moneyFlag) String() string { return f.amount.String() }

func (f *moneyFlag) Set(s string) error {
	m, err := domain.ParseMoney(s)
	if err != nil {
		return err
	}
	f.amount, f.set = m, true
	return nil
}

func parse(fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	seen := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	for _, name := range required {
		if !seen[name] {
			fmt.Fprintf(fs.Output(), "-%s is required\n", name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func respond(out io.Writer, data any) error {
	return handler.WriteJSON(out, handler.NewSuccess(data))
}

func runOpen(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	var owner uuidFlag
	var limit moneyFlag
	fs.Var(&owner, "owner", "owner id")
	fs.Var(&limit, "credit-limit", "credit limit, e.g. 500.00 (default from DEFAULT_CREDIT_LIMIT)")
	if err := parse(fs, args, "owner"); err != nil {
		return err
	}

	var creditLimit *int64
	if limit.set {
		v := limit.amount.Int64()
		creditLimit = &v
	}
	acct, err := a.Accounts.OpenAccount(ctx, owner.id, creditLimit)
	if err != nil {
		return err
	}
	return respond(out, toAccountDTO(acct))
}

func runGet(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	var id uuidFlag
	fs.Var(&id, "account", "account id")
	if err := parse(fs, args, "account"); err != nil {
		return err
	}
	acct, err := a.Accounts.GetAccount(ctx, id.id)
	if err != nil {
		return err
	}
	return respond(out, toAccountDTO(acct))
}

func runList(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	var owner uuidFlag
	fs.Var(&owner, "owner", "owner id")
	if err := parse(fs, args, "owner"); err != nil {
		return err
	}
	accounts, err := a.Accounts.ListAccounts(ctx, owner.id)
	if err != nil {
		return err
	}
	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	return respond(out, dtos)
}

func runBalance(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	var id uuidFlag
	fs.Var(&id, "account", "account id")
	if err := parse(fs, args, "account"); err != nil {
		return err
	}
	b, err := a.Accounts.GetBalance(ctx, id.id)
	if err != nil {
		return err
	}
	return respond(out, b)
}

func runBlock(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	return runTransition(ctx, a, "block", args, out, a.Accounts.BlockAccount)
}

func runUnblock(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	return runTransition(ctx, a, "unblock", args, out, a.Accounts.UnblockAccount)
}

func runDeactivate(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	return runTransition(ctx, a, "deactivate", args, out, a.Accounts.DeactivateAccount)
}

func runTransition(ctx context.Context, a *app.App, name string, args []string, out io.Writer, change func(context.Context, uuid.UUID) (*domain.Account, error)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var id uuidFlag
	fs.Var(&id, "account", "account id")
	if err := parse(fs, args, "account"); err != nil {
		return err
	}

	stop := a.StartDispatcher(ctx)
	defer stop()
	acct, err := change(ctx, id.id)
	if err != nil {
		return err
	}
	return respond(out, toAccountDTO(acct))
}

func runLimit(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("limit", flag.ContinueOnError)
	var id uuidFlag
	var limit moneyFlag
	fs.Var(&id, "account", "account id")
	fs.Var(&limit, "credit-limit", "new credit limit, e.g. 500.00")
	if err := parse(fs, args, "account", "credit-limit"); err != nil {
		return err
	}
	acct, err := a.Accounts.UpdateCreditLimit(ctx, id.id, limit.amount.Int64())
	if err != nil {
		return err
	}
	return respond(out, toAccountDTO(acct))
}

func runProcess(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	var account, destination uuidFlag
	var amount moneyFlag
	kind := fs.String("kind", "", "credit, debit, reserve, capture or transfer")
	fs.Var(&account, "account", "account id")
	fs.Var(&destination, "to", "destination account id, transfers only")
	fs.Var(&amount, "amount", "amount, e.g. 150.25")
	currency := fs.String("currency", "BRL", "currency code")
	ref := fs.String("ref", "", "unique reference id")
	desc := fs.String("description", "", "free-text description")
	if err := parse(fs, args, "kind", "account", "amount", "ref"); err != nil {
		return err
	}

	cmd := ledger.Command{
		Kind:        domain.TransactionKind(*kind),
		AccountID:   account.id,
		Amount:      amount.amount.Int64(),
		Currency:    *currency,
		ReferenceID: *ref,
		Description: *desc,
	}
	if destination.set {
		cmd.DestinationAccountID = &destination.id
	}

	stop := a.StartDispatcher(ctx)
	defer stop()
	res, err := a.Ledger.Process(ctx, cmd)
	if err != nil {
		return err
	}
	return respond(out, res)
}

func runReverse(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("reverse", flag.ContinueOnError)
	var txID uuidFlag
	fs.Var(&txID, "transaction", "id of the transaction to reverse")
	ref := fs.String("ref", "", "unique reference id for the reversal")
	if err := parse(fs, args, "transaction", "ref"); err != nil {
		return err
	}

	stop := a.StartDispatcher(ctx)
	defer stop()
	res, err := a.Ledger.Reverse(ctx, txID.id, *ref)
	if err != nil {
		return err
	}
	return respond(out, res)
}

func runStatement(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("statement", flag.ContinueOnError)
	var id uuidFlag
	fs.Var(&id, "account", "account id")
	from := fs.String("from", "", "period start, RFC 3339 (default: STATEMENT_WINDOW_DAYS before now)")
	to := fs.String("to", "", "period end, RFC 3339 (default: now)")
	if err := parse(fs, args, "account"); err != nil {
		return err
	}

	start, err := optionalTime(*from)
	if err != nil {
		return fmt.Errorf("-from: %w", domain.ErrInvalidPeriod)
	}
	end, err := optionalTime(*to)
	if err != nil {
		return fmt.Errorf("-to: %w", domain.ErrInvalidPeriod)
	}

	st, err := a.Ledger.GetStatement(ctx, id.id, start, end)
	if err != nil {
		return err
	}
	return respond(out, st)
}

func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
