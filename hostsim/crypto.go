package hostsim

import (
	"crypto/sha256"

	"github.com/ChainSafe/gossamer/lib/crypto/sr25519"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/govm-net/guestenv/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

func (h *Host) HashBlake2x128(input []byte, out *[16]byte) {
	h.charge(0, len(input))
	d, _ := blake2b.New(16, nil)
	d.Write(input)
	copy(out[:], d.Sum(nil))
}

func (h *Host) HashBlake2x256(input []byte, out *[32]byte) {
	h.charge(0, len(input))
	*out = blake2b.Sum256(input)
}

func (h *Host) HashSha2x256(input []byte, out *[32]byte) {
	h.charge(0, len(input))
	*out = sha256.Sum256(input)
}

func (h *Host) HashKeccak256(input []byte, out *[32]byte) {
	h.charge(0, len(input))
	d := sha3.NewLegacyKeccak256()
	d.Write(input)
	copy(out[:], d.Sum(nil))
}

// compactSignature converts an [r ‖ s ‖ v] signature, v being the
// recovery id with or without the 27 offset, to the [v ‖ r ‖ s] layout
// RecoverCompact expects for compressed keys.
func compactSignature(sig *[65]byte) []byte {
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	out := make([]byte, 65)
	out[0] = 27 + 4 + v
	copy(out[1:], sig[:64])
	return out
}

func (h *Host) EcdsaRecover(signature *[65]byte, messageHash *[32]byte, out *[33]byte) types.ReturnCode {
	h.charge(0, 0)
	if signature[64] > 30 {
		return types.EcdsaRecoveryFailed
	}
	pub, _, err := ecdsa.RecoverCompact(compactSignature(signature), messageHash[:])
	if err != nil {
		logger.Debug("ecdsa recovery failed", zap.Error(err))
		return types.EcdsaRecoveryFailed
	}
	copy(out[:], pub.SerializeCompressed())
	return types.Success
}

func (h *Host) EcdsaToEthAddress(publicKey *[33]byte, out *[20]byte) types.ReturnCode {
	h.charge(0, 0)
	pub, err := secp256k1.ParsePubKey(publicKey[:])
	if err != nil {
		return types.EcdsaRecoveryFailed
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(pub.SerializeUncompressed()[1:])
	copy(out[:], d.Sum(nil)[12:])
	return types.Success
}

func (h *Host) Sr25519Verify(signature *[64]byte, message []byte, publicKey *[32]byte) types.ReturnCode {
	h.charge(0, len(message))
	pub, err := sr25519.NewPublicKey(publicKey[:])
	if err != nil {
		return types.Sr25519VerifyFailed
	}
	ok, err := pub.Verify(message, signature[:])
	if err != nil || !ok {
		return types.Sr25519VerifyFailed
	}
	return types.Success
}
