package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/types"
	"github.com/spf13/cobra"
)

func (a *app) connectCmd() *cobra.Command {
	var user, password, protocol, project string
	cmd := &cobra.Command{
		Use:   "connect [URL]",
		Short: "Validate credentials and remember the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := a.cfg.Credentials()
			if len(args) == 1 {
				creds.BaseURL = args[0]
			}
			if user != "" {
				creds.Username = user
			}
			if password != "" {
				creds.Password = password
			}
			if project != "" {
				creds.Project = project
			}
			if protocol != "" {
				p, err := types.ParseProtocol(protocol)
				if err != nil {
					return err
				}
				creds.Protocol = p
			}
			if creds.IsZero() {
				return fmt.Errorf("no server URL given")
			}

			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if err := mgr.ConnectCredentials(cmd.Context(), creds); err != nil {
				return err
			}
			s, _ := mgr.Session()
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s\n", s.Credentials)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().StringVar(&protocol, "protocol", "", "http or webdav")
	cmd.Flags().StringVar(&project, "project", "", "project segment below the scope")
	return cmd
}

func (a *app) disconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "End the session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if err := mgr.Disconnect(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if err := mgr.AutoReconnect(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, mgr.State())
			if s, ok := mgr.Session(); ok {
				fmt.Fprintf(out, "server:  %s\n", s.Credentials)
				fmt.Fprintf(out, "session: %s\n", s.ID)
			}
			return nil
		},
	}
}

func (a *app) lsCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls [PATH]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			p := "/"
			if len(args) == 1 {
				p = args[0]
			}
			entries, err := f.List(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				if long {
					fmt.Fprintln(out, e.String())
					continue
				}
				name := e.Name
				if e.IsDir {
					name += "/"
				}
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "long listing")
	return cmd
}

func (a *app) statCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH",
		Short: "Show entry metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			e, err := f.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := map[string]any{
				"name":   e.Name,
				"path":   e.Path,
				"isDir":  e.IsDir,
				"size":   e.Size,
				"human":  humanize.Bytes(uint64(e.Size)),
				"mime":   e.MimeType,
				"source": e.Source.String(),
			}
			if !e.Modified.IsZero() {
				out["modified"] = e.Modified
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func (a *app) catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH",
		Short: "Print a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			data, err := f.ReadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put LOCAL|- PATH",
		Short: "Upload a local file (or stdin) to PATH",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			var src io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				src = file
			}
			w := f.Create(cmd.Context(), args[1])
			n, err := io.Copy(w, src)
			if err != nil {
				// Not closing discards the partial upload.
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s to %s\n", humanize.Bytes(uint64(n)), remotefs.CleanPath(args[1]))
			return nil
		},
	}
}

func (a *app) mkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir PATH",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			return f.CreateDirectory(cmd.Context(), args[0])
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			return f.Delete(cmd.Context(), args[0])
		},
	}
}

func (a *app) mvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv OLD NEW",
		Short: "Rename an entry within its directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.facade(cmd.Context())
			if err != nil {
				return err
			}
			return f.Rename(cmd.Context(), args[0], args[1])
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config or stores needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), remotefs.GetVersionInfo())
		},
	}
}
