// Package pkttest derives IKEv2 keying material for use in pkt's own
// tests, so tests can build a real SA without depending on key-exchange
// code outside this module.
package pkttest

import (
	"crypto/hmac"
	"hash"
)

// PrfPlus implements prf+(key, data), RFC 7296 section 2.13: iterate the
// prf over T(n) = prf(key, T(n-1) | data | n) and concatenate until n
// bytes are produced.
func PrfPlus(newPRF func() hash.Hash, key, data []byte, n int) []byte {
	var ret, prev []byte
	round := byte(1)
	for len(ret) < n {
		h := hmac.New(newPRF, key)
		h.Write(prev)
		h.Write(data)
		h.Write([]byte{round})
		prev = h.Sum(nil)
		ret = append(ret, prev...)
		round++
	}
	return ret[:n]
}

// KeyMaterial holds one IKE SA's full directional keying material, split
// out of KEYMAT the same way IsaCreate does: SK_d, then the two
// directions' auth and encryption keys, then the two directions' SK_p
// keys used to compute AUTH payloads.
type KeyMaterial struct {
	SKd            []byte
	SKai, SKar     []byte
	SKei, SKer     []byte
	SKpi, SKpr     []byte
}

// DeriveIKESAKeys computes SKEYSEED and KEYMAT and splits them, mirroring
// IsaCreate: SKEYSEED = prf(Ni|Nr, sharedSecret); KEYMAT =
// prf+(SKEYSEED, Ni|Nr|SPIi|SPIr).
func DeriveIKESAKeys(newPRF func() hash.Hash, ni, nr, sharedSecret, spiI, spiR []byte, prfLen, macKeyLen, encrKeyLen int) KeyMaterial {
	seedH := hmac.New(newPRF, append(append([]byte(nil), ni...), nr...))
	seedH.Write(sharedSecret)
	skeyseed := seedH.Sum(nil)

	total := 3*prfLen + 2*macKeyLen + 2*encrKeyLen
	data := append(append(append([]byte(nil), ni...), nr...), append(append([]byte(nil), spiI...), spiR...)...)
	keymat := PrfPlus(newPRF, skeyseed, data, total)

	off := 0
	take := func(n int) []byte {
		b := keymat[off : off+n]
		off += n
		return b
	}
	km := KeyMaterial{}
	km.SKd = take(prfLen)
	km.SKai = take(macKeyLen)
	km.SKar = take(macKeyLen)
	km.SKei = take(encrKeyLen)
	km.SKer = take(encrKeyLen)
	km.SKpi = take(prfLen)
	km.SKpr = take(prfLen)
	return km
}
