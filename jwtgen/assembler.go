package jwtgen

import "strings"

// Assemble joins the three segments into the compact serialization
// header.payload.signature.
func Assemble(headerSegment, payloadSegment, signatureSegment string) string {
	return strings.Join([]string{headerSegment, payloadSegment, signatureSegment}, ".")
}
