package auth

import (
	"crypto/md5"
	"encoding/hex"
)

// HashMD5Password implements PostgreSQL's md5 password hash: a nested MD5
// of (password+username), then (hexdigest+salt), prefixed "md5". This is
// computed once per AuthenticationMD5Password challenge; there is no
// Plugin for it because the whole exchange is a single response with no
// server round trip beyond the salt already carried in the challenge.
func HashMD5Password(user, password string, salt [4]byte) string {
	inner := md5Hex([]byte(password + user))
	outer := md5Hex(append([]byte(inner), salt[:]...))
	return "md5" + outer
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}
