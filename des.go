package rfb

import "encoding/binary"

// VNC-Auth (security type 2, RFC 6143 §7.2.2) authenticates with
// single-DES ECB under a key derived by bit-reversing each byte of the
// password. The standard library's crypto/des is not used; the cipher
// (key schedule, Feistel rounds, ECB over two blocks) is implemented
// directly here, the same way other Go VNC clients do.

var ipTable = []uint8{
	58, 50, 42, 34, 26, 18, 10, 2,
	60, 52, 44, 36, 28, 20, 12, 4,
	62, 54, 46, 38, 30, 22, 14, 6,
	64, 56, 48, 40, 32, 24, 16, 8,
	57, 49, 41, 33, 25, 17, 9, 1,
	59, 51, 43, 35, 27, 19, 11, 3,
	61, 53, 45, 37, 29, 21, 13, 5,
	63, 55, 47, 39, 31, 23, 15, 7,
}

var fpTable = []uint8{
	40, 8, 48, 16, 56, 24, 64, 32,
	39, 7, 47, 15, 55, 23, 63, 31,
	38, 6, 46, 14, 54, 22, 62, 30,
	37, 5, 45, 13, 53, 21, 61, 29,
	36, 4, 44, 12, 52, 20, 60, 28,
	35, 3, 43, 11, 51, 19, 59, 27,
	34, 2, 42, 10, 50, 18, 58, 26,
	33, 1, 41, 9, 49, 17, 57, 25,
}

var eTable = []uint8{
	32, 1, 2, 3, 4, 5,
	4, 5, 6, 7, 8, 9,
	8, 9, 10, 11, 12, 13,
	12, 13, 14, 15, 16, 17,
	16, 17, 18, 19, 20, 21,
	20, 21, 22, 23, 24, 25,
	24, 25, 26, 27, 28, 29,
	28, 29, 30, 31, 32, 1,
}

var pTable = []uint8{
	16, 7, 20, 21,
	29, 12, 28, 17,
	1, 15, 23, 26,
	5, 18, 31, 10,
	2, 8, 24, 14,
	32, 27, 3, 9,
	19, 13, 30, 6,
	22, 11, 4, 25,
}

var pc1Table = []uint8{
	57, 49, 41, 33, 25, 17, 9,
	1, 58, 50, 42, 34, 26, 18,
	10, 2, 59, 51, 43, 35, 27,
	19, 11, 3, 60, 52, 44, 36,
	63, 55, 47, 39, 31, 23, 15,
	7, 62, 54, 46, 38, 30, 22,
	14, 6, 61, 53, 45, 37, 29,
	21, 13, 5, 28, 20, 12, 4,
}

var pc2Table = []uint8{
	14, 17, 11, 24, 1, 5,
	3, 28, 15, 6, 21, 10,
	23, 19, 12, 4, 26, 8,
	16, 7, 27, 20, 13, 2,
	41, 52, 31, 37, 47, 55,
	30, 40, 51, 45, 33, 48,
	44, 49, 39, 56, 34, 53,
	46, 42, 50, 36, 29, 32,
}

var shiftTable = [16]int{1, 1, 2, 2, 2, 2, 2, 2, 1, 2, 2, 2, 2, 2, 2, 1}

var sBoxes = [8][4][16]uint8{
	{
		{14, 4, 13, 1, 2, 15, 11, 8, 3, 10, 6, 12, 5, 9, 0, 7},
		{0, 15, 7, 4, 14, 2, 13, 1, 10, 6, 12, 11, 9, 5, 3, 8},
		{4, 1, 14, 8, 13, 6, 2, 11, 15, 12, 9, 7, 3, 10, 5, 0},
		{15, 12, 8, 2, 4, 9, 1, 7, 5, 11, 3, 14, 10, 0, 6, 13},
	},
	{
		{15, 1, 8, 14, 6, 11, 3, 4, 9, 7, 2, 13, 12, 0, 5, 10},
		{3, 13, 4, 7, 15, 2, 8, 14, 12, 0, 1, 10, 6, 9, 11, 5},
		{0, 14, 7, 11, 10, 4, 13, 1, 5, 8, 12, 6, 9, 3, 2, 15},
		{13, 8, 10, 1, 3, 15, 4, 2, 11, 6, 7, 12, 0, 5, 14, 9},
	},
	{
		{10, 0, 9, 14, 6, 3, 15, 5, 1, 13, 12, 7, 11, 4, 2, 8},
		{13, 7, 0, 9, 3, 4, 6, 10, 2, 8, 5, 14, 12, 11, 15, 1},
		{13, 6, 4, 9, 8, 15, 3, 0, 11, 1, 2, 12, 5, 10, 14, 7},
		{1, 10, 13, 0, 6, 9, 8, 7, 4, 15, 14, 3, 11, 5, 2, 12},
	},
	{
		{7, 13, 14, 3, 0, 6, 9, 10, 1, 2, 8, 5, 11, 12, 4, 15},
		{13, 8, 11, 5, 6, 15, 0, 3, 4, 7, 2, 12, 1, 10, 14, 9},
		{10, 6, 9, 0, 12, 11, 7, 13, 15, 1, 3, 14, 5, 2, 8, 4},
		{3, 15, 0, 6, 10, 1, 13, 8, 9, 4, 5, 11, 12, 7, 2, 14},
	},
	{
		{2, 12, 4, 1, 7, 10, 11, 6, 8, 5, 3, 15, 13, 0, 14, 9},
		{14, 11, 2, 12, 4, 7, 13, 1, 5, 0, 15, 10, 3, 9, 8, 6},
		{4, 2, 1, 11, 10, 13, 7, 8, 15, 9, 12, 5, 6, 3, 0, 14},
		{11, 8, 12, 7, 1, 14, 2, 13, 6, 15, 0, 9, 10, 4, 5, 3},
	},
	{
		{12, 1, 10, 15, 9, 2, 6, 8, 0, 13, 3, 4, 14, 7, 5, 11},
		{10, 15, 4, 2, 7, 12, 9, 5, 6, 1, 13, 14, 0, 11, 3, 8},
		{9, 14, 15, 5, 2, 8, 12, 3, 7, 0, 4, 10, 1, 13, 11, 6},
		{4, 3, 2, 12, 9, 5, 15, 10, 11, 14, 1, 7, 6, 0, 8, 13},
	},
	{
		{4, 11, 2, 14, 15, 0, 8, 13, 3, 12, 9, 7, 5, 10, 6, 1},
		{13, 0, 11, 7, 4, 9, 1, 10, 14, 3, 5, 12, 2, 15, 8, 6},
		{1, 4, 11, 13, 12, 3, 7, 14, 10, 15, 6, 8, 0, 5, 9, 2},
		{6, 11, 13, 8, 1, 4, 10, 7, 9, 5, 0, 15, 14, 2, 3, 12},
	},
	{
		{13, 2, 8, 4, 6, 15, 11, 1, 10, 9, 3, 14, 5, 0, 12, 7},
		{1, 15, 13, 8, 10, 3, 7, 4, 12, 5, 6, 11, 0, 14, 9, 2},
		{7, 11, 4, 1, 9, 12, 14, 2, 0, 6, 10, 13, 15, 3, 5, 8},
		{2, 1, 14, 7, 4, 10, 8, 13, 15, 12, 9, 0, 3, 5, 6, 11},
	},
}

// permute extracts, for each 1-indexed bit position in table (counted
// from the MSB of an inBits-wide value), the corresponding bit of in
// and packs the results MSB-first into the returned value.
func permute(in uint64, inBits int, table []uint8) uint64 {
	var out uint64
	for _, pos := range table {
		bit := (in >> uint(inBits-int(pos))) & 1
		out = out<<1 | bit
	}
	return out
}

func leftRotate28(v uint32, n int) uint32 {
	v &= 0x0FFFFFFF
	return ((v << uint(n)) | (v >> uint(28-n))) & 0x0FFFFFFF
}

func desSubkeys(key uint64) [16]uint64 {
	kp := permute(key, 64, pc1Table) // 56 significant bits
	c := uint32(kp>>28) & 0x0FFFFFFF
	d := uint32(kp) & 0x0FFFFFFF
	var subkeys [16]uint64
	for round := 0; round < 16; round++ {
		shift := shiftTable[round]
		c = leftRotate28(c, shift)
		d = leftRotate28(d, shift)
		cd := uint64(c)<<28 | uint64(d)
		subkeys[round] = permute(cd, 56, pc2Table)
	}
	return subkeys
}

func desFeistel(r uint32, subkey uint64) uint32 {
	expanded := permute(uint64(r), 32, eTable) & 0xFFFFFFFFFFFF
	x := expanded ^ subkey
	var sboxOut uint32
	for i := 0; i < 8; i++ {
		chunk := byte((x >> uint(42-6*i)) & 0x3F)
		row := ((chunk & 0x20) >> 4) | (chunk & 0x01)
		col := (chunk >> 1) & 0x0F
		sboxOut = sboxOut<<4 | uint32(sBoxes[i][row][col])
	}
	return uint32(permute(uint64(sboxOut), 32, pTable))
}

// desEncryptBlock encrypts one 64-bit block under one 64-bit (8-byte,
// parity bits ignored) DES key.
func desEncryptBlock(key, block uint64) uint64 {
	subkeys := desSubkeys(key)
	ip := permute(block, 64, ipTable)
	l := uint32(ip >> 32)
	r := uint32(ip)
	for round := 0; round < 16; round++ {
		l, r = r, l^desFeistel(r, subkeys[round])
	}
	preOutput := uint64(r)<<32 | uint64(l)
	return permute(preOutput, 64, fpTable)
}

// reverseBits reverses the bit order within a single byte, the
// historical VNC quirk that turns a password into a DES key (§4.3).
func reverseBits(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

// vncAuthKey derives the 8-byte DES key from a password: right-padded
// with NULs to 8 bytes (longer passwords truncated), each byte then
// bit-reversed.
func vncAuthKey(password string) uint64 {
	var key [8]byte
	copy(key[:], password)
	for i := range key {
		key[i] = reverseBits(key[i])
	}
	return binary.BigEndian.Uint64(key[:])
}

// vncAuthResponse encrypts the 16-byte server challenge as two
// independent 8-byte ECB blocks under the password-derived key, per
// §4.3's VNC-Auth specifics.
func vncAuthResponse(password string, challenge [16]byte) [16]byte {
	key := vncAuthKey(password)
	var resp [16]byte
	for i := 0; i < 2; i++ {
		block := binary.BigEndian.Uint64(challenge[i*8 : i*8+8])
		enc := desEncryptBlock(key, block)
		binary.BigEndian.PutUint64(resp[i*8:i*8+8], enc)
	}
	return resp
}
