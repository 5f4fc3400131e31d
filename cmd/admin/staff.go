package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/biblionet/biblionet-backend/internal/auth"
)

func newStaffCmd() *cobra.Command {
	staff := &cobra.Command{Use: "staff", Short: "Manage employee accounts"}

	var req auth.StaffRegisterRequest
	var askPassword bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a librarian or administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if askPassword {
				pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				req.Password = pw
			}

			ctx := commandContext(cmd)
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := auth.NewStaffRegisterService(auth.StaffRegisterServiceParams{
				Tx:             rt.DB,
				Users:          rt.Domain.Users,
				Audit:          rt.Domain.AuditRepo,
				PasswordConfig: rt.Config.Password,
				Logger:         rt.Logger,
			})
			if err != nil {
				return err
			}
			res, err := svc.Register(ctx, 0, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if res.TemporaryPassword != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "temporary password: %s\n", res.TemporaryPassword)
			}
			return nil
		},
	}
	create.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	create.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	create.Flags().StringVar(&req.Email, "email", "", "login email")
	create.Flags().StringVar(&req.Role, "role", "bibliotecario", "bibliotecario or administrador")
	create.Flags().BoolVar(&askPassword, "password", false, "prompt for a password instead of generating a temporary one")
	_ = create.MarkFlagRequired("first-name")
	_ = create.MarkFlagRequired("last-name")
	_ = create.MarkFlagRequired("email")

	staff.AddCommand(create)
	return staff
}

// readPassword reads without echo on a terminal and falls back to one line
// of plain input otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
