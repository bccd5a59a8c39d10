// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Riley Calder, Calder Avionics

package dronecan

// CalculateCRC computes the CRC-16-CCITT checksum of data starting from
// crc. Pass crcInitial for a fresh checksum; feed further chunks through
// the returned value.
func CalculateCRC(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// TransferCRC computes the multi-frame transfer CRC: CRC-16-CCITT seeded
// with the 64-bit data type signature (little-endian) followed by the
// full transfer payload.
func TransferCRC(signature uint64, payload []byte) uint16 {
	var sig [8]byte
	for i := 0; i < 8; i++ {
		sig[i] = byte(signature >> (8 * i))
	}
	crc := CalculateCRC(crcInitial, sig[:])
	return CalculateCRC(crc, payload)
}
