package solana

import (
	"bytes"
	"errors"
	"fmt"
)

// SignatureLength is the size of an ed25519 signature.
const SignatureLength = 64

// AccountMeta describes one account referenced by an instruction.
type AccountMeta struct {
	PublicKey  PublicKey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Message is a compiled legacy transaction message.
type Message struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
	AccountKeys                 []PublicKey
	RecentBlockhash             PublicKey
	Instructions                []CompiledInstruction
}

// CompiledInstruction references accounts by index into Message.AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// CompileMessage orders accounts the way the runtime expects: the fee payer
// first, then writable signers, readonly signers, writable non-signers and
// readonly non-signers, each group in first-seen order.
func CompileMessage(feePayer PublicKey, blockhash PublicKey, instructions []Instruction) (*Message, error) {
	if len(instructions) == 0 {
		return nil, errors.New("compile message: no instructions")
	}

	type meta struct {
		key      PublicKey
		signer   bool
		writable bool
	}
	var order []PublicKey
	metas := make(map[PublicKey]*meta)
	add := func(pk PublicKey, signer, writable bool) {
		m, ok := metas[pk]
		if !ok {
			m = &meta{key: pk}
			metas[pk] = m
			order = append(order, pk)
		}
		m.signer = m.signer || signer
		m.writable = m.writable || writable
	}

	add(feePayer, true, true)
	for _, ix := range instructions {
		for _, a := range ix.Accounts {
			add(a.PublicKey, a.IsSigner, a.IsWritable)
		}
		add(ix.ProgramID, false, false)
	}

	var groups [4][]PublicKey
	for _, pk := range order {
		m := metas[pk]
		switch {
		case m.signer && m.writable:
			groups[0] = append(groups[0], pk)
		case m.signer:
			groups[1] = append(groups[1], pk)
		case m.writable:
			groups[2] = append(groups[2], pk)
		default:
			groups[3] = append(groups[3], pk)
		}
	}

	msg := &Message{
		NumRequiredSignatures:       uint8(len(groups[0]) + len(groups[1])),
		NumReadonlySignedAccounts:   uint8(len(groups[1])),
		NumReadonlyUnsignedAccounts: uint8(len(groups[3])),
		RecentBlockhash:             blockhash,
	}
	for _, g := range groups {
		msg.AccountKeys = append(msg.AccountKeys, g...)
	}
	if len(msg.AccountKeys) > 256 {
		return nil, fmt.Errorf("compile message: %d accounts exceeds 256", len(msg.AccountKeys))
	}

	index := make(map[PublicKey]uint8, len(msg.AccountKeys))
	for i, pk := range msg.AccountKeys {
		index[pk] = uint8(i)
	}
	for _, ix := range instructions {
		ci := CompiledInstruction{
			ProgramIDIndex: index[ix.ProgramID],
			Accounts:       make([]uint8, len(ix.Accounts)),
			Data:           ix.Data,
		}
		for i, a := range ix.Accounts {
			ci.Accounts[i] = index[a.PublicKey]
		}
		msg.Instructions = append(msg.Instructions, ci)
	}
	return msg, nil
}

// Serialize encodes the message in wire format.
func (m *Message) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte(m.NumRequiredSignatures)
	buf.WriteByte(m.NumReadonlySignedAccounts)
	buf.WriteByte(m.NumReadonlyUnsignedAccounts)
	writeCompactU16(&buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf.Write(k[:])
	}
	buf.Write(m.RecentBlockhash[:])
	writeCompactU16(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf.WriteByte(ix.ProgramIDIndex)
		writeCompactU16(&buf, len(ix.Accounts))
		buf.Write(ix.Accounts)
		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}
	return buf.Bytes()
}

// SignMessage signs m with every required signer and returns the wire
// transaction and its first signature.
func SignMessage(m *Message, signers ...*Keypair) ([]byte, []byte, error) {
	byKey := make(map[PublicKey]*Keypair, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey()] = s
	}

	payload := m.Serialize()
	sigs := make([][]byte, m.NumRequiredSignatures)
	for i := 0; i < int(m.NumRequiredSignatures); i++ {
		s, ok := byKey[m.AccountKeys[i]]
		if !ok {
			return nil, nil, fmt.Errorf("missing signer %s", m.AccountKeys[i])
		}
		sigs[i] = s.Sign(payload)
	}

	var buf bytes.Buffer
	writeCompactU16(&buf, len(sigs))
	for _, sig := range sigs {
		buf.Write(sig)
	}
	buf.Write(payload)
	return buf.Bytes(), sigs[0], nil
}

// SignSerialized adds signer's signature to a serialized transaction built
// elsewhere (legacy or versioned). The signer must be one of the message's
// required signers. Returns the updated transaction and the fee-payer signature.
func SignSerialized(raw []byte, signer *Keypair) ([]byte, []byte, error) {
	numSigs, n, err := readCompactU16(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("read signature count: %w", err)
	}
	sigStart := n
	msgStart := sigStart + numSigs*SignatureLength
	if numSigs == 0 || msgStart >= len(raw) {
		return nil, nil, errors.New("transaction too short")
	}
	message := raw[msgStart:]

	keys, numRequired, err := messageSigners(message)
	if err != nil {
		return nil, nil, err
	}
	if numRequired != numSigs {
		return nil, nil, fmt.Errorf("signature count %d does not match header %d", numSigs, numRequired)
	}

	self := signer.PublicKey()
	pos := -1
	for i := 0; i < numRequired && i < len(keys); i++ {
		if keys[i] == self {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, nil, fmt.Errorf("signer %s is not a required signer", self)
	}

	out := make([]byte, len(raw))
	copy(out, raw)
	copy(out[sigStart+pos*SignatureLength:], signer.Sign(message))

	first := make([]byte, SignatureLength)
	copy(first, out[sigStart:sigStart+SignatureLength])
	return out, first, nil
}

// messageSigners returns the static account keys and required signature count
// of a serialized message.
func messageSigners(message []byte) ([]PublicKey, int, error) {
	off := 0
	if message[0]&0x80 != 0 {
		if version := message[0] & 0x7f; version != 0 {
			return nil, 0, fmt.Errorf("unsupported message version %d", version)
		}
		off = 1
	}
	if len(message) < off+3 {
		return nil, 0, errors.New("message header truncated")
	}
	numRequired := int(message[off])
	off += 3

	numKeys, n, err := readCompactU16(message[off:])
	if err != nil {
		return nil, 0, fmt.Errorf("read account count: %w", err)
	}
	off += n
	if len(message) < off+numKeys*PublicKeyLength {
		return nil, 0, errors.New("account keys truncated")
	}
	keys := make([]PublicKey, numKeys)
	for i := range keys {
		copy(keys[i][:], message[off+i*PublicKeyLength:])
	}
	return keys, numRequired, nil
}

func writeCompactU16(buf *bytes.Buffer, v int) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}

func readCompactU16(b []byte) (int, int, error) {
	v := 0
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, errors.New("compact-u16 truncated")
		}
		v |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, errors.New("compact-u16 overflow")
}
