package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/optiflow/optiflow/internal/core/domain"
)

func newAuthCmd(app appFunc, out formatterFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and inspect the current session",
	}
	cmd.AddCommand(
		newLoginCmd(app, out),
		newRegisterCmd(app, out),
		newLogoutCmd(app, out),
		newStatusCmd(app, out),
	)
	return cmd
}

func newLoginCmd(app appFunc, out formatterFunc) *cobra.Command {
	var form loginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Sign in with a username and password. Missing credentials are prompted for.

Examples:
  optiflow auth login --username alice@example.com
  optiflow auth login -u alice@example.com -p 's3cret'`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd.Context(), app(), out(), form)
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func runLogin(ctx context.Context, a *App, f formatter, form loginForm) error {
	if err := a.prompt.Credentials("Sign in to OptiFlow", &form.Username, &form.Password); err != nil {
		return err
	}
	if err := validate.Struct(form); err != nil {
		return err
	}
	if err := a.session.Login(ctx, form.Username, form.Password); err != nil {
		return sessionError(a, err)
	}
	return printSession(f, a.session.Snapshot())
}

func newRegisterCmd(app appFunc, out formatterFunc) *cobra.Command {
	var form registerForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in with it",
		Long: `Create an account. The username must be an email address and the password
at least 10 characters with an uppercase letter, a number and a symbol.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegister(cmd.Context(), app(), out(), form)
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "email address to register")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func runRegister(ctx context.Context, a *App, f formatter, form registerForm) error {
	if err := a.prompt.Credentials("Create an OptiFlow account", &form.Username, &form.Password); err != nil {
		return err
	}
	if err := validate.Struct(form); err != nil {
		return err
	}
	if err := a.session.Register(ctx, form.Username, form.Password); err != nil {
		return sessionError(a, err)
	}
	return printSession(f, a.session.Snapshot())
}

func newLogoutCmd(app appFunc, out formatterFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			a.session.Logout(cmd.Context())
			return out().Notice(sessionView{State: domain.StateAnonymous}, "Signed out.")
		},
	}
}

func newStatusCmd(app appFunc, out formatterFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  exactArgs(0),
		RunE: func(*cobra.Command, []string) error {
			return printSession(out(), app().session.Snapshot())
		},
	}
}

// sessionError prefers the message the store recorded for display.
func sessionError(a *App, err error) error {
	if msg := a.session.Snapshot().Error; msg != "" {
		return displayError{msg: msg, cause: err}
	}
	return err
}

type sessionView struct {
	State     domain.SessionState `json:"state"                yaml:"state"`
	UserID    string              `json:"user_id,omitempty"    yaml:"user_id,omitempty"`
	Username  string              `json:"username,omitempty"   yaml:"username,omitempty"`
	Role      domain.Role         `json:"role,omitempty"       yaml:"role,omitempty"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func newSessionView(s domain.Session) sessionView {
	v := sessionView{State: s.State()}
	if !s.IsAuthenticated() {
		return v
	}
	v.UserID = string(s.User.ID)
	v.Username = s.User.Username
	v.Role = s.Role
	if info, err := domain.InspectToken(s.Token); err == nil && !info.ExpiresAt.IsZero() {
		exp := info.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

func printSession(f formatter, s domain.Session) error {
	v := newSessionView(s)
	if v.State != domain.StateAuthenticated {
		return f.Notice(v, "Not signed in.")
	}

	expires := "unknown"
	if v.ExpiresAt != nil {
		expires = v.ExpiresAt.Local().Format(time.RFC1123)
	}
	return f.Print(v, keyValues(
		[2]string{"Username", v.Username},
		[2]string{"User ID", v.UserID},
		[2]string{"Role", string(v.Role)},
		[2]string{"Token expires", expires},
	))
}
