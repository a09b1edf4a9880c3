package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// getPassword is a test seam for GetPassword.
var getPassword = GetPassword

func (a *App) register(ctx context.Context, args []string) error {
	login, err := a.arg(args, 0, "Login")
	if err != nil {
		return err
	}
	email, err := a.arg(args, 1, "Email")
	if err != nil {
		return err
	}

	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	confirm, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	defer wipe(confirm)

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}

	u, err := a.api.Register(ctx, login, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered.")
	a.printUser(u)
	return nil
}

// login prints the issued token on its own line so it can be captured,
// e.g. export ELNAFO_TOKEN=$(elnafo-cli login alice | tail -1).
func (a *App) login(ctx context.Context, args []string) error {
	identity, err := a.arg(args, 0, "Login or email")
	if err != nil {
		return err
	}

	password, err := getPassword("Password", a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	token, u, err := a.api.Login(ctx, identity, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", u.Login)
	fmt.Fprintln(a.out, token)
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	if a.config.Token == "" {
		return fmt.Errorf("%w: no token, pass -t or set ELNAFO_TOKEN", ErrUsage)
	}
	u, err := a.api.Current(ctx, a.config.Token)
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if err := a.api.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out. Issued tokens stay valid until they expire; unset ELNAFO_TOKEN to forget yours.")
	return nil
}
