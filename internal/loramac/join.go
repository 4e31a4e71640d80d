package loramac

import (
	"github.com/brocaar/lorawan"
)

// Key derivation selectors.
const (
	nwkSKeySelector byte = 0x01
	appSKeySelector byte = 0x02
)

// PackJoinRequest returns the join-request frame for the given identifiers
// (little-endian, as supplied) with its MIC set using the AppKey.
func PackJoinRequest(a Authenticator, appEUI, devEUI lorawan.EUI64, devNonce DevNonce, appKey lorawan.AES128Key) (JoinRequestFrame, error) {
	f := JoinRequestFrame{
		MHDR:     MHDRJoinRequest,
		AppEUI:   appEUI,
		DevEUI:   devEUI,
		DevNonce: devNonce,
	}
	if err := f.SetMIC(a, appKey); err != nil {
		return JoinRequestFrame{}, err
	}
	return f, nil
}

// ValidateJoinRequest packs the join-request for the given identifiers and
// compares its MIC against the MIC of the frame received from the peer.
// ErrInvalidMIC is returned on a mismatch.
func ValidateJoinRequest(a Authenticator, appEUI, devEUI lorawan.EUI64, devNonce DevNonce, appKey lorawan.AES128Key, peer JoinRequestFrame) error {
	f, err := PackJoinRequest(a, appEUI, devEUI, devNonce, appKey)
	if err != nil {
		return err
	}

	if !micEqual(f.MIC, peer.MIC) {
		return errorf(ErrInvalidMIC, "join-request mic %s does not match calculated mic %s", peer.MIC, f.MIC)
	}
	return nil
}

// DeriveSessionKeys derives the NwkSKey and AppSKey from the AppKey.
// Each key is a single block encryption of
// selector | AppNonce | NetID | DevNonce | 0x00 * 7
// with each field reversed into big-endian order.
func DeriveSessionKeys(c BlockCipher, appKey lorawan.AES128Key, appNonce AppNonce, netID lorawan.NetID, devNonce DevNonce) (SessionKeys, error) {
	var keys SessionKeys

	nwkSKey, err := deriveKey(c, appKey, nwkSKeySelector, appNonce, netID, devNonce)
	if err != nil {
		return keys, err
	}
	appSKey, err := deriveKey(c, appKey, appSKeySelector, appNonce, netID, devNonce)
	if err != nil {
		return keys, err
	}

	keys.NwkSKey = nwkSKey
	keys.AppSKey = appSKey
	return keys, nil
}

func deriveKey(c BlockCipher, appKey lorawan.AES128Key, selector byte, appNonce AppNonce, netID lorawan.NetID, devNonce DevNonce) (lorawan.AES128Key, error) {
	var key lorawan.AES128Key

	b := make([]byte, blockSize)
	b[0] = selector
	copy(b[1:4], reverse(appNonce[:]))
	copy(b[4:7], reverse(netID[:]))
	b[7] = devNonce[1]
	b[8] = devNonce[0]

	if err := c.EncryptBlock(appKey, key[:], b); err != nil {
		return key, primitiveError(err, "encrypt derivation block error")
	}
	return key, nil
}

// JoinAcceptResult holds the outcome of processing a join-accept.
type JoinAcceptResult struct {
	SessionKeys
	Frame             JoinAcceptFrame
	VerificationBlock [JoinAcceptBodySize]byte
}

// ProcessJoinAccept derives the session keys for the given join-accept and
// device nonce. Independently the join-accept body is packed, its MIC is set
// and the body is encrypted under the AppKey into the verification block.
// Checking the verification block is left to the caller.
func ProcessJoinAccept(a Authenticator, c BlockCipher, f JoinAcceptFrame, devNonce DevNonce, appKey lorawan.AES128Key) (JoinAcceptResult, error) {
	var res JoinAcceptResult

	keys, err := DeriveSessionKeys(c, appKey, f.AppNonce, f.NetID, devNonce)
	if err != nil {
		return res, err
	}

	if err := f.SetMIC(a, appKey); err != nil {
		return res, err
	}

	body, err := f.MarshalBinary()
	if err != nil {
		return res, err
	}

	if err := c.EncryptBlock(appKey, res.VerificationBlock[:], body[:JoinAcceptBodySize]); err != nil {
		return res, primitiveError(err, "encrypt join-accept error")
	}

	res.SessionKeys = keys
	res.Frame = f
	return res, nil
}
