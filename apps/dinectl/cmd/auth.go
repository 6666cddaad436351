package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/dinetap/dinetap-go/session"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the session with the current venue",
}

var loginCmd = &cobra.Command{
	Use:   "login [EMAIL]",
	Short: "Log in with email and password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		user, err := client.Auth.Login(cmd.Context(), args[0], string(pw))
		if err != nil {
			return err
		}
		if user != nil {
			fmt.Printf("Logged in as %s %s (%s)\n", user.FirstName, user.LastName, user.Email)
		} else {
			fmt.Println("Logged in.")
		}
		return nil
	},
}

var googleLoginCmd = &cobra.Command{
	Use:   "google",
	Short: "Log in via Google, using a local browser redirect",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		listener, err := session.NewCallbackListener(0)
		if err != nil {
			return err
		}
		defer listener.Close()

		fmt.Printf("Open this URL in your browser to sign in:\n\n  %s?redirect_uri=%s\n\n", client.GoogleAuthURL(), listener.RedirectURL())
		fmt.Println("Waiting for the sign-in to complete...")

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		ret, err := listener.Wait(ctx)
		if err != nil {
			return errors.New("timed out waiting for the sign-in redirect")
		}

		state := client.Bootstrap(cmd.Context(), ret)
		if state.Kind != session.Authenticated && state.Kind != session.Opaque {
			return errors.New("sign-in did not produce a session")
		}
		fmt.Println("Signed in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}
		if err := client.Auth.Logout(cmd.Context()); err != nil {
			// Local credentials are already cleared; the server call failing
			// is worth mentioning but not fatal.
			fmt.Fprintf(os.Stderr, "Warning: server logout failed: %v\n", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session and profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		state := client.Session().Current()
		fmt.Printf("Session: %s\n", state.Kind)
		if state.Kind != session.Authenticated && state.Kind != session.Opaque {
			return nil
		}

		user, err := client.Auth.Me(cmd.Context())
		if err != nil {
			if cached := client.Auth.CachedProfile(cmd.Context()); cached != nil {
				fmt.Println("(offline, showing cached profile)")
				user = cached
			} else {
				return err
			}
		}
		out, err := yaml.Marshal(user)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(googleLoginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
}
