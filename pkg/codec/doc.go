/*
Package codec implements the primitive byte layer shared by every other
kdforest package: unsigned LEB128 varints and little-endian fixed-width
scalar encodings.

Every codec primitive in this package follows the same function-pair shape,
after the teacher's pkg/codec.RecordCodec (write/decode), generalized from
a single Record type to arbitrary primitives:

	WriteX(dst []byte, v T) int           // encode, return bytes written
	ReadX(src []byte) (int, T, error)     // decode, return bytes read + value

Fixed-width primitives have no size function (their width is constant);
varints add CountUvarint for the size without encoding.

Multi-byte integers use little-endian throughout (an implementation choice
left open by spec §4.A / §9 Open Question (c); little-endian was picked
here and is not revisited per file).
*/
package codec
