// Package encryption seals small secrets, such as API keys, with
// XChaCha20-Poly1305 under a key derived from a passphrase with Argon2id.
//
//	salt, _ := encryption.NewSalt()
//	c, err := encryption.NewCipher(encryption.DeriveKey(passphrase, salt))
//	sealed, err := c.SealString("sk-...")
//	key, err := c.OpenString(sealed)
package encryption
