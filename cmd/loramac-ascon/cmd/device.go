package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/brocaar/loramac-ascon/internal/config"
	"github.com/brocaar/loramac-ascon/internal/loramac"
	"github.com/brocaar/loramac-ascon/internal/storage"
)

var uplinkFramesLimit int

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage the device-sessions in the keyring",
}

var deviceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a device-session with a random DevAddr and random session keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.Setup(config.C); err != nil {
			return err
		}

		ctx := context.Background()
		ds, err := storage.NewDeviceSession(ctx, config.C.NetworkServer.NetID)
		if err != nil {
			return errors.Wrap(err, "new device-session error")
		}
		if err := storage.CreateDeviceSession(ctx, ds); err != nil {
			return errors.Wrap(err, "create device-session error")
		}

		return printJSON(cmd.OutOrStdout(), ds)
	},
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the device-sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.Setup(config.C); err != nil {
			return err
		}

		sessions, err := storage.GetDeviceSessions(context.Background())
		if err != nil {
			return errors.Wrap(err, "get device-sessions error")
		}

		return printJSON(cmd.OutOrStdout(), sessions)
	},
}

var deviceShowCmd = &cobra.Command{
	Use:     "show [devaddr]",
	Short:   "Print the device-session as JSON",
	Example: `loramac-ascon device show 01020304`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		devAddr, err := decodeDevAddr(args[0])
		if err != nil {
			return err
		}

		if err := storage.Setup(config.C); err != nil {
			return err
		}

		ds, err := storage.GetDeviceSession(context.Background(), devAddr)
		if err != nil {
			return errors.Wrap(err, "get device-session error")
		}

		return printJSON(cmd.OutOrStdout(), ds)
	},
}

var deviceDeleteCmd = &cobra.Command{
	Use:     "delete [devaddr]",
	Short:   "Delete the device-session",
	Example: `loramac-ascon device delete 01020304`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		devAddr, err := decodeDevAddr(args[0])
		if err != nil {
			return err
		}

		if err := storage.Setup(config.C); err != nil {
			return err
		}

		if err := storage.DeleteDeviceSession(context.Background(), devAddr); err != nil {
			return errors.Wrap(err, "delete device-session error")
		}
		return nil
	},
}

var uplinkFramesCmd = &cobra.Command{
	Use:     "uplink-frames [devaddr]",
	Short:   "Print the stored uplink frames of the device as JSON, newest first",
	Example: `loramac-ascon uplink-frames --limit 10 01020304`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		devAddr, err := decodeDevAddr(args[0])
		if err != nil {
			return err
		}

		if err := storage.Setup(config.C); err != nil {
			return err
		}

		frames, err := storage.GetUplinkFrames(context.Background(), storage.DB(), devAddr, uplinkFramesLimit)
		if err != nil {
			return errors.Wrap(err, "get uplink frames error")
		}

		return printJSON(cmd.OutOrStdout(), frames)
	},
}

func init() {
	deviceCmd.AddCommand(deviceCreateCmd)
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceShowCmd)
	deviceCmd.AddCommand(deviceDeleteCmd)

	uplinkFramesCmd.Flags().IntVar(&uplinkFramesLimit, "limit", 25, "max number of frames")
}

func decodeDevAddr(s string) (lorawan.DevAddr, error) {
	var devAddr lorawan.DevAddr
	if err := devAddr.UnmarshalText([]byte(s)); err != nil {
		return devAddr, errors.Wrapf(loramac.ErrInvalidInput, "decode devaddr: %s", err)
	}
	return devAddr, nil
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrap(err, "json marshal error")
	}

	fmt.Fprintln(w, string(b))
	return nil
}
