package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kandru/accounts"
	"kandru/audio"
	"kandru/doctor"
	"kandru/log"
)

func newAccountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the accounts configured on this device",
	}

	withStore := func(fn func(*accounts.Store) error) error {
		store, err := accounts.Open(a.cfg.AccountsDB)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(store)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(func(s *accounts.Store) error {
				all, err := s.List()
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No accounts configured")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "JID\tNAME\tADDED")
				for _, acc := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", acc.JID, acc.Name, acc.Created.Local().Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}

	var name string
	add := &cobra.Command{
		Use:   "add <jid>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *accounts.Store) error {
				acc, err := s.Add(args[0], name)
				if err != nil {
					return err
				}
				log.Infof("account added: %s", acc.JID)
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", acc.JID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")

	remove := &cobra.Command{
		Use:     "remove <jid>",
		Aliases: []string{"rm"},
		Short:   "Remove an account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *accounts.Store) error {
				if err := s.Remove(args[0]); err != nil {
					return err
				}
				log.Infof("account removed: %s", args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}

func newDevicesCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, err := audio.NewContext()
			if err != nil {
				return fmt.Errorf("initializing audio: %w", err)
			}
			defer ctx.Close()
			devices, err := ctx.Devices()
			if err != nil {
				return fmt.Errorf("enumerating devices: %w", err)
			}
			for _, d := range devices {
				tag := ""
				if audio.IsBluetooth(d.Name) {
					tag = "  [bluetooth]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", d.Name, tag)
			}
			return nil
		},
	}
}

func newDoctorCmd(a *app) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o := doctor.Options{
				StorageDir: a.cfg.StorageDir,
				AccountsDB: a.cfg.AccountsDB,
				Container:  a.cfg.Container,
				Clipboard:  a.cfg.CopyURI,
				Out:        cmd.OutOrStdout(),
			}
			if ctx, err := audio.NewContext(); err == nil {
				defer ctx.Close()
				o.Audio = ctx
				if device == "" {
					device = a.cfg.Device
				}
				o.Device, _ = audio.FindDevice(ctx, device)
			} else {
				log.Errorf("doctor: audio init: %v", err)
			}
			if doctor.Run(o) != 0 {
				return errors.New("diagnostics failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "microphone device to test")
	return cmd
}
