package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/adeleeuw3/NLVreport/internal/catalog"
)

func runAuth(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s auth: missing subcommand", appName)
	}
	sub := args[0]
	switch sub {
	case "signup", "signin", "signout", "whoami":
	default:
		return fmt.Errorf("%s auth: unknown subcommand %q", appName, sub)
	}

	fs := flag.NewFlagSet("auth "+sub, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password (default: $NLVREPORT_PASSWORD)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("NLVREPORT_PASSWORD")
	}

	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx := context.Background()

	switch sub {
	case "whoami":
		u, err := e.currentUser(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s (%s)\n", u.Email, u.ID)
		return nil
	case "signout":
		return e.track("auth_signout", nil, func() error {
			if err := e.auth.SignOut(ctx); err != nil {
				return err
			}
			e.notifier.Infof("Signed out")
			return nil
		})
	}

	return e.track("auth_"+sub, map[string]any{"email": strings.ToLower(strings.TrimSpace(*email))}, func() error {
		signIn := e.auth.SignIn
		if sub == "signup" {
			signIn = e.auth.SignUp
		}
		sess, err := signIn(ctx, *email, *password)
		if err != nil {
			return err
		}
		e.notifier.Successf("Signed in as %s", sess.User.Email)
		return nil
	})
}

func runCatalog(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] != "list" {
		return fmt.Errorf("%s catalog: expected subcommand list", appName)
	}
	fs := flag.NewFlagSet("catalog list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	category := fs.String("category", "", "Only list this category")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	e, err := openEnv(workspacePath)
	if err != nil {
		return err
	}
	defer e.Close()

	for _, cat := range catalog.Categories() {
		if *category != "" && !strings.EqualFold(*category, string(cat)) {
			continue
		}
		defs := e.cat.ByCategory(cat)
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(os.Stdout, "%s\n", cat)
		for _, def := range defs {
			inputs := make([]string, 0, len(def.Inputs))
			for _, in := range def.Inputs {
				inputs = append(inputs, fmt.Sprintf("%s:%s", in.ID, in.Type))
			}
			fmt.Fprintf(os.Stdout, "  %-24s %-12s %s [%s]\n", def.ID, def.Visualization, def.Title, strings.Join(inputs, " "))
		}
	}
	return nil
}
