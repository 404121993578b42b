// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoki.
//
// go-cryptoki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package mechanism

import (
	"bytes"
	"fmt"

	"github.com/jeremyhahn/go-cryptoki/internal/wire"
	"github.com/jeremyhahn/go-cryptoki/pkg/symbol"
)

// Params is a mechanism parameter payload. The set of implementations is
// closed: Bytes, AEADParams, MessageParams, OAEPParams, PSSParams,
// ECDHParams, HKDFParams and ExtraParams.
type Params interface {
	// Family returns the parameter family of the payload.
	Family() symbol.ParamFamily

	// MarshalBinary returns the payload in its wire layout.
	MarshalBinary() ([]byte, error)

	isParams()
}

// Bytes is a plain byte-string parameter: an IV, or the data of a
// key-derivation-string mechanism.
type Bytes []byte

// IV returns an initialization vector parameter holding a copy of iv.
func IV(iv []byte) Bytes {
	return Bytes(bytes.Clone(iv))
}

// Data returns a derivation data parameter holding a copy of data.
func Data(data []byte) Bytes {
	return Bytes(bytes.Clone(data))
}

func (Bytes) Family() symbol.ParamFamily { return symbol.FamilyBytes }
func (Bytes) isParams()                  {}

// MarshalBinary returns the bytes themselves; the C layout of a byte-string
// parameter is the bytes.
func (b Bytes) MarshalBinary() ([]byte, error) {
	return bytes.Clone([]byte(b)), nil
}

// AEADParams holds the parameters of a single-shot or streaming AEAD
// mechanism such as CKM_AES_GCM, CKM_AES_CCM or CKM_CHACHA20_POLY1305.
//
// The value is immutable except for the data length, which some mechanisms
// need before a decrypt of a known size. Prefer WithDataLen, which returns a
// fresh copy, over SetDataLen on a value shared between operations.
type AEADParams struct {
	nonce   []byte
	aad     []byte
	tagBits int
	dataLen uint64
}

// NewAEADParams returns AEAD parameters. tagBits is the tag length in bits.
func NewAEADParams(nonce, aad []byte, tagBits int) *AEADParams {
	return &AEADParams{
		nonce:   bytes.Clone(nonce),
		aad:     bytes.Clone(aad),
		tagBits: tagBits,
	}
}

func (p *AEADParams) Nonce() []byte   { return bytes.Clone(p.nonce) }
func (p *AEADParams) AAD() []byte     { return bytes.Clone(p.aad) }
func (p *AEADParams) TagBits() int    { return p.tagBits }
func (p *AEADParams) DataLen() uint64 { return p.dataLen }

// SetDataLen records the message length for mechanisms that need it up
// front. It is the only mutation AEADParams allows.
func (p *AEADParams) SetDataLen(n uint64) {
	p.dataLen = n
}

// WithDataLen returns a copy of p with the data length set to n.
func (p *AEADParams) WithDataLen(n uint64) *AEADParams {
	c := NewAEADParams(p.nonce, p.aad, p.tagBits)
	c.dataLen = n
	return c
}

func (*AEADParams) Family() symbol.ParamFamily { return symbol.FamilyAEAD }
func (*AEADParams) isParams()                  {}

func (p *AEADParams) MarshalBinary() ([]byte, error) {
	if p.tagBits < 0 || p.tagBits%8 != 0 {
		return nil, fmt.Errorf("%w: tag length %d bits is not a whole number of bytes", ErrParamMismatch, p.tagBits)
	}
	b := wire.NewBuffer(nil)
	b.AddOptionalByteArray(p.nonce)
	b.AddOptionalByteArray(p.aad)
	b.AddUint32(uint32(p.tagBits))
	b.AddUint64(p.dataLen)
	return b.Bytes(), nil
}

// MessageParams holds the per-message parameters of a message-based AEAD
// operation. For encryption the token writes the computed tag back with
// SetTag; for decryption the caller supplies the expected tag.
type MessageParams struct {
	nonce   []byte
	tagBits int
	tag     []byte
}

// NewMessageParams returns per-message parameters for encryption.
func NewMessageParams(nonce []byte, tagBits int) *MessageParams {
	return &MessageParams{nonce: bytes.Clone(nonce), tagBits: tagBits}
}

// NewMessageParamsWithTag returns per-message parameters for decryption.
func NewMessageParamsWithTag(nonce, tag []byte) *MessageParams {
	return &MessageParams{nonce: bytes.Clone(nonce), tagBits: len(tag) * 8, tag: bytes.Clone(tag)}
}

func (p *MessageParams) Nonce() []byte { return bytes.Clone(p.nonce) }
func (p *MessageParams) TagBits() int  { return p.tagBits }
func (p *MessageParams) Tag() []byte   { return bytes.Clone(p.tag) }

// SetTag stores the tag a token computed for an encrypted message.
func (p *MessageParams) SetTag(tag []byte) {
	p.tag = bytes.Clone(tag)
}

func (*MessageParams) Family() symbol.ParamFamily { return symbol.FamilyAEADMessage }
func (*MessageParams) isParams()                  {}

func (p *MessageParams) MarshalBinary() ([]byte, error) {
	b := wire.NewBuffer(nil)
	b.AddOptionalByteArray(p.nonce)
	b.AddUint32(uint32(p.tagBits))
	b.AddOptionalByteArray(p.tag)
	return b.Bytes(), nil
}

// OAEPParams are CK_RSA_PKCS_OAEP_PARAMS. Source is the optional encoding
// parameter (label).
type OAEPParams struct {
	Hash   uint64
	MGF    uint64
	Source []byte
}

// NewOAEPParams returns OAEP parameters holding a copy of source.
func NewOAEPParams(hash, mgf uint64, source []byte) *OAEPParams {
	return &OAEPParams{Hash: hash, MGF: mgf, Source: bytes.Clone(source)}
}

func (*OAEPParams) Family() symbol.ParamFamily { return symbol.FamilyOAEP }
func (*OAEPParams) isParams()                  {}

func (p *OAEPParams) MarshalBinary() ([]byte, error) {
	b := wire.NewBuffer(nil)
	b.AddUint64(p.Hash)
	b.AddUint64(p.MGF)
	b.AddOptionalByteArray(p.Source)
	return b.Bytes(), nil
}

// PSSParams are CK_RSA_PKCS_PSS_PARAMS.
type PSSParams struct {
	Hash    uint64
	MGF     uint64
	SaltLen uint64
}

// NewPSSParams returns PSS parameters.
func NewPSSParams(hash, mgf, saltLen uint64) *PSSParams {
	return &PSSParams{Hash: hash, MGF: mgf, SaltLen: saltLen}
}

func (*PSSParams) Family() symbol.ParamFamily { return symbol.FamilyPSS }
func (*PSSParams) isParams()                  {}

func (p *PSSParams) MarshalBinary() ([]byte, error) {
	b := wire.NewBuffer(nil)
	b.AddUint64(p.Hash)
	b.AddUint64(p.MGF)
	b.AddUint64(p.SaltLen)
	return b.Bytes(), nil
}

// ECDHParams are CK_ECDH1_DERIVE_PARAMS.
type ECDHParams struct {
	KDF        uint64
	SharedData []byte
	PublicData []byte
}

// NewECDHParams returns ECDH derivation parameters. publicData is the peer's
// public point.
func NewECDHParams(kdf uint64, sharedData, publicData []byte) *ECDHParams {
	return &ECDHParams{KDF: kdf, SharedData: bytes.Clone(sharedData), PublicData: bytes.Clone(publicData)}
}

func (*ECDHParams) Family() symbol.ParamFamily { return symbol.FamilyECDH }
func (*ECDHParams) isParams()                  {}

func (p *ECDHParams) MarshalBinary() ([]byte, error) {
	b := wire.NewBuffer(nil)
	b.AddUint64(p.KDF)
	b.AddOptionalByteArray(p.SharedData)
	b.AddByteArray(p.PublicData)
	return b.Bytes(), nil
}

// HKDFParams are CK_HKDF_PARAMS.
type HKDFParams struct {
	Extract  bool
	Expand   bool
	PRF      uint64
	SaltType uint64
	Salt     []byte
	SaltKey  uint64
	Info     []byte
}

func (*HKDFParams) Family() symbol.ParamFamily { return symbol.FamilyHKDF }
func (*HKDFParams) isParams()                  {}

func (p *HKDFParams) MarshalBinary() ([]byte, error) {
	b := wire.NewBuffer(nil)
	b.AddBool(p.Extract)
	b.AddBool(p.Expand)
	b.AddUint64(p.PRF)
	b.AddUint64(p.SaltType)
	b.AddOptionalByteArray(p.Salt)
	b.AddUint64(p.SaltKey)
	b.AddOptionalByteArray(p.Info)
	return b.Bytes(), nil
}

// ExtraParams wraps another payload with hints that never reach the token.
// ECOrderBits, when set, makes the operation engine normalize ECDSA
// signatures to fixed-width r||s for a curve of that order size.
type ExtraParams struct {
	Inner       Params
	ECOrderBits int
}

// Family reports the family of the wrapped payload.
func (p *ExtraParams) Family() symbol.ParamFamily {
	if p.Inner == nil {
		return symbol.FamilyNone
	}
	return p.Inner.Family()
}

func (*ExtraParams) isParams() {}

// MarshalBinary returns the wire layout of the wrapped payload.
func (p *ExtraParams) MarshalBinary() ([]byte, error) {
	if p.Inner == nil {
		return nil, nil
	}
	return p.Inner.MarshalBinary()
}
