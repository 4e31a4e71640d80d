// Package engine executes the tagged operation requests against the
// loramac primitives.
package engine

import (
	"fmt"

	"github.com/brocaar/lorawan"
	"github.com/pkg/errors"

	"github.com/brocaar/loramac-ascon/internal/loramac"
)

// Engine executes operation requests. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	authenticator loramac.Authenticator
	blockCipher   loramac.BlockCipher
}

// New creates a new Engine.
func New(a loramac.Authenticator, c loramac.BlockCipher) *Engine {
	return &Engine{
		authenticator: a,
		blockCipher:   c,
	}
}

// NewByName creates a new Engine using AES-128 and the given MIC algorithm.
func NewByName(micAlgorithm string) (*Engine, error) {
	a, err := loramac.AuthenticatorByName(micAlgorithm)
	if err != nil {
		return nil, err
	}
	return New(a, loramac.AES128{}), nil
}

// Authenticator returns the configured Authenticator.
func (e *Engine) Authenticator() loramac.Authenticator {
	return e.authenticator
}

// Execute executes the given request.
func (e *Engine) Execute(req Request) (Result, error) {
	switch r := req.(type) {
	case JoinRequestCheck:
		return e.joinRequestCheck(r)
	case DataDecrypt:
		return e.dataDecrypt(r)
	case DataEncrypt:
		return e.dataEncrypt(r)
	case JoinAcceptProcess:
		return e.joinAcceptProcess(r)
	default:
		return nil, fmt.Errorf("unexpected request type: %T", req)
	}
}

func (e *Engine) joinRequestCheck(r JoinRequestCheck) (Result, error) {
	var peer loramac.JoinRequestFrame
	if err := peer.UnmarshalBinary(r.Frame); err != nil {
		return nil, err
	}

	if err := loramac.ValidateJoinRequest(e.authenticator, r.AppEUI, r.DevEUI, r.DevNonce, r.AppKey, peer); err != nil {
		return nil, err
	}

	return JoinRequestResult{Frame: peer}, nil
}

// dataDecrypt decodes the frame, validates the MIC and only then decrypts
// the FRMPayload.
func (e *Engine) dataDecrypt(r DataDecrypt) (Result, error) {
	p, err := e.DecryptFrame(r.Frame, r.NwkSKey, r.AppSKey)
	if err != nil {
		return nil, err
	}
	return DataDecryptResult{PHYPayload: p}, nil
}

// DecryptFrame decodes the given data frame, validates its MIC and decrypts
// its FRMPayload. ErrInvalidMIC is returned when the MIC does not match.
func (e *Engine) DecryptFrame(frame []byte, nwkSKey, appSKey lorawan.AES128Key) (loramac.PHYPayload, error) {
	p, err := loramac.Decode(frame)
	if err != nil {
		return p, err
	}

	ok, err := p.ValidateMIC(e.authenticator, nwkSKey)
	if err != nil {
		return loramac.PHYPayload{}, err
	}
	if !ok {
		return loramac.PHYPayload{}, errors.Wrapf(loramac.ErrInvalidMIC, "data frame mic %s (devaddr: %s, fcnt: %d)", p.MIC, p.MACPayload.FHDR.DevAddr, p.MACPayload.FHDR.FCnt)
	}

	if err := p.DecryptFRMPayload(e.blockCipher, appSKey); err != nil {
		return loramac.PHYPayload{}, err
	}
	return p, nil
}

func (e *Engine) dataEncrypt(r DataEncrypt) (Result, error) {
	p := loramac.PHYPayload{
		MHDR: lorawan.MHDR{
			MType: r.MType,
			Major: lorawan.LoRaWANR1,
		},
		MACPayload: loramac.MACPayload{
			FHDR: loramac.FHDR{
				DevAddr: r.DevAddr,
				FCnt:    r.FCnt,
			},
			FPort:      r.FPort,
			FRMPayload: r.Payload,
		},
	}

	if err := p.EncryptFRMPayload(e.blockCipher, r.AppSKey); err != nil {
		return nil, err
	}
	if err := p.SetMIC(e.authenticator, r.NwkSKey); err != nil {
		return nil, err
	}

	b, err := loramac.Encode(p)
	if err != nil {
		return nil, err
	}

	return DataEncryptResult{
		PHYPayload: p,
		Frame:      b,
	}, nil
}

func (e *Engine) joinAcceptProcess(r JoinAcceptProcess) (Result, error) {
	f := loramac.JoinAcceptFrame{
		MHDR:       loramac.MHDRJoinAccept,
		AppNonce:   r.AppNonce,
		NetID:      r.NetID,
		DevAddr:    r.DevAddr,
		DLSettings: r.DLSettings,
		RXDelay:    r.RXDelay,
	}

	res, err := loramac.ProcessJoinAccept(e.authenticator, e.blockCipher, f, r.DevNonce, r.AppKey)
	if err != nil {
		return nil, err
	}
	return JoinAcceptResult{JoinAcceptResult: res}, nil
}
