package engine

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/brocaar/lorawan"

	"github.com/brocaar/loramac-ascon/internal/loramac"
)

// Request defines an operation request. It is implemented by
// JoinRequestCheck, DataDecrypt, DataEncrypt and JoinAcceptProcess.
type Request interface {
	request()
}

// Result defines the result of an operation. String returns the result in
// its printed form.
type Result interface {
	fmt.Stringer
}

// JoinRequestCheck validates the MIC of a join-request received from a
// device. AppEUI, DevEUI and DevNonce are given in little-endian order.
type JoinRequestCheck struct {
	AppEUI   lorawan.EUI64
	DevEUI   lorawan.EUI64
	DevNonce loramac.DevNonce
	AppKey   lorawan.AES128Key
	Frame    []byte
}

// DataDecrypt validates and decrypts a data frame.
type DataDecrypt struct {
	Frame   []byte
	NwkSKey lorawan.AES128Key
	AppSKey lorawan.AES128Key
}

// DataEncrypt encrypts the payload into a data frame.
type DataEncrypt struct {
	MType   lorawan.MType
	DevAddr lorawan.DevAddr
	FCnt    uint16
	FPort   uint8
	Payload []byte
	NwkSKey lorawan.AES128Key
	AppSKey lorawan.AES128Key
}

// JoinAcceptProcess derives the session keys and the verification block of
// a join-accept. AppNonce, NetID and DevNonce are given in little-endian
// order.
type JoinAcceptProcess struct {
	AppNonce   loramac.AppNonce
	NetID      lorawan.NetID
	DevNonce   loramac.DevNonce
	DevAddr    lorawan.DevAddr
	DLSettings byte
	RXDelay    byte
	AppKey     lorawan.AES128Key
}

func (JoinRequestCheck) request()  {}
func (DataDecrypt) request()       {}
func (DataEncrypt) request()       {}
func (JoinAcceptProcess) request() {}

// JoinRequestResult holds the validated join-request.
type JoinRequestResult struct {
	Frame loramac.JoinRequestFrame
}

// String implements fmt.Stringer.
func (r JoinRequestResult) String() string {
	return "join-request mic is valid"
}

// DataDecryptResult holds the decrypted data frame.
type DataDecryptResult struct {
	PHYPayload loramac.PHYPayload
}

// String returns the payload, DevAddr, FCnt, FPort and MHDR in hex, one per
// line.
func (r DataDecryptResult) String() string {
	p := r.PHYPayload
	return strings.Join([]string{
		hex.EncodeToString(p.MACPayload.FRMPayload),
		p.MACPayload.FHDR.DevAddr.String(),
		fmt.Sprintf("%04x", p.MACPayload.FHDR.FCnt),
		fmt.Sprintf("%02x", p.MACPayload.FPort),
		fmt.Sprintf("%02x", p.MHDRByte()),
	}, "\n")
}

// DataEncryptResult holds the serialized data frame.
type DataEncryptResult struct {
	PHYPayload loramac.PHYPayload
	Frame      []byte
}

// String returns the frame in hex.
func (r DataEncryptResult) String() string {
	return hex.EncodeToString(r.Frame)
}

// JoinAcceptResult holds the session keys and verification block.
type JoinAcceptResult struct {
	loramac.JoinAcceptResult
}

// String returns the NwkSKey, AppSKey and MHDR | verification block in
// hex, one per line.
func (r JoinAcceptResult) String() string {
	return strings.Join([]string{
		r.NwkSKey.String(),
		r.AppSKey.String(),
		fmt.Sprintf("%02x", r.Frame.MHDRByte()) + hex.EncodeToString(r.VerificationBlock[:]),
	}, "\n")
}
