package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/brocaar/loramac-ascon/internal/config"
	"github.com/brocaar/loramac-ascon/internal/engine"
)

var joinRequestFlags struct {
	appEUI   string
	devEUI   string
	devNonce string
	appKey   string
}

var joinAcceptFlags struct {
	appNonce   string
	netID      string
	devNonce   string
	devAddr    string
	dlSettings uint8
	rxDelay    uint8
	appKey     string
}

var dataFlags struct {
	mType   string
	devAddr string
	fCnt    uint16
	fPort   uint8
	nwkSKey string
	appSKey string
}

var macFlags struct {
	key string
}

var joinRequestCmd = &cobra.Command{
	Use:     "join-request [base64 frame]",
	Short:   "Validate the MIC of a join-request",
	Example: `loramac-ascon join-request --app-eui 0807060504030201 --dev-eui 0102030405060708 --dev-nonce 0100 --app-key 00000000000000000000000000000000 <base64 frame>`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newJoinRequestCheck(args[0])
		if err != nil {
			return err
		}
		return executeRequest(cmd, req)
	},
}

var joinAcceptCmd = &cobra.Command{
	Use:     "join-accept",
	Short:   "Derive the session keys and verification block of a join-accept",
	Example: `loramac-ascon join-accept --app-nonce 010000 --net-id 000000 --dev-nonce 0100 --dev-addr 01020304 --app-key 00000000000000000000000000000000`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newJoinAcceptProcess()
		if err != nil {
			return err
		}
		return executeRequest(cmd, req)
	},
}

var decryptCmd = &cobra.Command{
	Use:     "decrypt [base64 frame]",
	Short:   "Validate the MIC of a data frame and decrypt its payload",
	Example: `loramac-ascon decrypt --nwk-s-key 0102030405060708090a0b0c0d0e0f10 --app-s-key 100f0e0d0c0b0a090807060504030201 <base64 frame>`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newDataDecrypt(args[0])
		if err != nil {
			return err
		}
		return executeRequest(cmd, req)
	},
}

var encryptCmd = &cobra.Command{
	Use:     "encrypt [hex payload]",
	Short:   "Encrypt the payload into a data frame",
	Example: `loramac-ascon encrypt --dev-addr 01020304 --f-cnt 1 --f-port 1 --nwk-s-key 0102030405060708090a0b0c0d0e0f10 --app-s-key 100f0e0d0c0b0a090807060504030201 deadbeef`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := newDataEncrypt(args[0])
		if err != nil {
			return err
		}
		return executeRequest(cmd, req)
	},
}

var macCmd = &cobra.Command{
	Use:     "mac [base64 data]",
	Short:   "Print the full authentication tag of the given data",
	Example: `loramac-ascon mac --key 000102030405060708090a0b0c0d0e0f AAECAw==`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := decodeKey("key", macFlags.key)
		if err != nil {
			return err
		}
		data, err := decodeBase64("data", args[0])
		if err != nil {
			return err
		}

		e, err := engine.NewByName(config.C.Crypto.MICAlgorithm)
		if err != nil {
			return err
		}

		tag, err := e.Authenticator().Authenticate(key, data)
		if err != nil {
			return errors.Wrap(err, "authenticate error")
		}

		fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(tag[:]))
		return nil
	},
}

func init() {
	joinRequestCmd.Flags().StringVar(&joinRequestFlags.appEUI, "app-eui", "", "AppEUI (hex, little-endian)")
	joinRequestCmd.Flags().StringVar(&joinRequestFlags.devEUI, "dev-eui", "", "DevEUI (hex, little-endian)")
	joinRequestCmd.Flags().StringVar(&joinRequestFlags.devNonce, "dev-nonce", "", "DevNonce (hex, little-endian)")
	joinRequestCmd.Flags().StringVar(&joinRequestFlags.appKey, "app-key", "", "AppKey (hex)")

	joinAcceptCmd.Flags().StringVar(&joinAcceptFlags.appNonce, "app-nonce", "", "AppNonce (hex, little-endian)")
	joinAcceptCmd.Flags().StringVar(&joinAcceptFlags.netID, "net-id", "000000", "NetID (hex, little-endian)")
	joinAcceptCmd.Flags().StringVar(&joinAcceptFlags.devNonce, "dev-nonce", "", "DevNonce (hex, little-endian)")
	joinAcceptCmd.Flags().StringVar(&joinAcceptFlags.devAddr, "dev-addr", "00000000", "DevAddr (hex)")
	joinAcceptCmd.Flags().Uint8Var(&joinAcceptFlags.dlSettings, "dl-settings", 0, "DLSettings byte")
	joinAcceptCmd.Flags().Uint8Var(&joinAcceptFlags.rxDelay, "rx-delay", 0, "RXDelay byte")
	joinAcceptCmd.Flags().StringVar(&joinAcceptFlags.appKey, "app-key", "", "AppKey (hex)")

	for _, c := range []*cobra.Command{decryptCmd, encryptCmd} {
		c.Flags().StringVar(&dataFlags.nwkSKey, "nwk-s-key", "", "NwkSKey (hex)")
		c.Flags().StringVar(&dataFlags.appSKey, "app-s-key", "", "AppSKey (hex)")
	}
	encryptCmd.Flags().StringVar(&dataFlags.mType, "m-type", "unconfirmed-data-up", "message type (unconfirmed-data-up or unconfirmed-data-down)")
	encryptCmd.Flags().StringVar(&dataFlags.devAddr, "dev-addr", "", "DevAddr (hex)")
	encryptCmd.Flags().Uint16Var(&dataFlags.fCnt, "f-cnt", 0, "frame-counter")
	encryptCmd.Flags().Uint8Var(&dataFlags.fPort, "f-port", 1, "FPort")

	macCmd.Flags().StringVar(&macFlags.key, "key", "", "key (hex)")
}

func newJoinRequestCheck(frame string) (engine.JoinRequestCheck, error) {
	var req engine.JoinRequestCheck
	var err error

	if err = decodeHexInto("app-eui", joinRequestFlags.appEUI, req.AppEUI[:]); err != nil {
		return req, err
	}
	if err = decodeHexInto("dev-eui", joinRequestFlags.devEUI, req.DevEUI[:]); err != nil {
		return req, err
	}
	if err = decodeHexInto("dev-nonce", joinRequestFlags.devNonce, req.DevNonce[:]); err != nil {
		return req, err
	}
	if req.AppKey, err = decodeKey("app-key", joinRequestFlags.appKey); err != nil {
		return req, err
	}
	if req.Frame, err = decodeBase64("frame", frame); err != nil {
		return req, err
	}
	return req, nil
}

func newJoinAcceptProcess() (engine.JoinAcceptProcess, error) {
	req := engine.JoinAcceptProcess{
		DLSettings: joinAcceptFlags.dlSettings,
		RXDelay:    joinAcceptFlags.rxDelay,
	}
	var err error

	if err = decodeHexInto("app-nonce", joinAcceptFlags.appNonce, req.AppNonce[:]); err != nil {
		return req, err
	}
	if err = decodeHexInto("net-id", joinAcceptFlags.netID, req.NetID[:]); err != nil {
		return req, err
	}
	if err = decodeHexInto("dev-nonce", joinAcceptFlags.devNonce, req.DevNonce[:]); err != nil {
		return req, err
	}
	if err = decodeHexInto("dev-addr", joinAcceptFlags.devAddr, req.DevAddr[:]); err != nil {
		return req, err
	}
	if req.AppKey, err = decodeKey("app-key", joinAcceptFlags.appKey); err != nil {
		return req, err
	}
	return req, nil
}

func newDataDecrypt(frame string) (engine.DataDecrypt, error) {
	var req engine.DataDecrypt
	var err error

	if req.NwkSKey, err = decodeKey("nwk-s-key", dataFlags.nwkSKey); err != nil {
		return req, err
	}
	if req.AppSKey, err = decodeKey("app-s-key", dataFlags.appSKey); err != nil {
		return req, err
	}
	if req.Frame, err = decodeBase64("frame", frame); err != nil {
		return req, err
	}
	return req, nil
}

func newDataEncrypt(payload string) (engine.DataEncrypt, error) {
	req := engine.DataEncrypt{
		FCnt:  dataFlags.fCnt,
		FPort: dataFlags.fPort,
	}
	var err error

	if req.MType, err = decodeMType(dataFlags.mType); err != nil {
		return req, err
	}
	if err = decodeHexInto("dev-addr", dataFlags.devAddr, req.DevAddr[:]); err != nil {
		return req, err
	}
	if req.NwkSKey, err = decodeKey("nwk-s-key", dataFlags.nwkSKey); err != nil {
		return req, err
	}
	if req.AppSKey, err = decodeKey("app-s-key", dataFlags.appSKey); err != nil {
		return req, err
	}
	if req.Payload, err = decodeHex("payload", payload, 0); err != nil {
		return req, err
	}
	return req, nil
}

func executeRequest(cmd *cobra.Command, req engine.Request) error {
	e, err := engine.NewByName(config.C.Crypto.MICAlgorithm)
	if err != nil {
		return err
	}

	res, err := e.Execute(req)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res)
	return nil
}
