package builtin

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentra-lang/gowam/internal/wam"
	"github.com/sentra-lang/gowam/internal/wamerr"
)

// RegisterCrypto installs the sys:crypto built-ins, grounded on the
// teacher's cryptoanalysis module's hashing/randomness helpers and
// extended with a real elliptic-curve keypair built directly from
// filippo.io/edwards25519's Scalar/Point API (the teacher pulls this in
// only transitively, through go-sql-driver/mysql's auth plugin; using it
// directly here gives it a real home rather than leaving it dead).
func RegisterCrypto(preds *wam.PredicateTable) {
	const module = "sys"

	// sys:sha256_hex(+Data, -HexDigest)
	preds.LoadBuiltin(module, "sha256_hex", 2, func(s *wam.State, arity int) (bool, error) {
		data, err := atomArg(s, 0, predName(module, "sha256_hex", arity))
		if err != nil {
			return false, err
		}
		sum := sha256.Sum256([]byte(data))
		return unifyAtom(s, 1, hex.EncodeToString(sum[:]))
	})

	// sys:random_bytes_hex(+NumBytes, -HexString)
	preds.LoadBuiltin(module, "random_bytes_hex", 2, func(s *wam.State, arity int) (bool, error) {
		n, err := intArg(s, 0, predName(module, "random_bytes_hex", arity))
		if err != nil {
			return false, err
		}
		if n < 0 || n > 1<<20 {
			return false, wamerr.Domain("byte_count", "random_bytes_hex/2")
		}
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return false, wamerr.Resource("random_bytes_hex: " + err.Error())
		}
		return unifyAtom(s, 1, hex.EncodeToString(buf))
	})

	// sys:new_keypair(-PublicHex, -PrivateHex): a fresh edwards25519
	// scalar and its base-point multiple, hex-encoded. Not a full Ed25519
	// signing implementation — a minimal, directly-exercised use of the
	// curve arithmetic the library actually exposes.
	preds.LoadBuiltin(module, "new_keypair", 2, func(s *wam.State, arity int) (bool, error) {
		seed := make([]byte, 64)
		if _, err := rand.Read(seed); err != nil {
			return false, wamerr.Resource("new_keypair: " + err.Error())
		}
		priv, err := edwards25519.NewScalar().SetUniformBytes(seed)
		if err != nil {
			return false, wamerr.Resource("new_keypair: " + err.Error())
		}
		pub := new(edwards25519.Point).ScalarBaseMult(priv)

		if ok, err := unifyAtom(s, 0, hex.EncodeToString(pub.Bytes())); !ok || err != nil {
			return ok, err
		}
		return unifyAtom(s, 1, hex.EncodeToString(priv.Bytes()))
	})

	// sys:password_hash(+Password, -Hash): a bcrypt hash of Password at
	// the library default cost, for predicates that need to store a
	// credential rather than just digest one.
	preds.LoadBuiltin(module, "password_hash", 2, func(s *wam.State, arity int) (bool, error) {
		pw, err := atomArg(s, 0, predName(module, "password_hash", arity))
		if err != nil {
			return false, err
		}
		sum, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if err != nil {
			return false, wamerr.Resource("password_hash: " + err.Error())
		}
		return unifyAtom(s, 1, string(sum))
	})

	// sys:password_verify(+Password, +Hash): succeeds iff Password
	// matches the bcrypt Hash previously produced by password_hash/2.
	preds.LoadBuiltin(module, "password_verify", 2, func(s *wam.State, arity int) (bool, error) {
		pw, err := atomArg(s, 0, predName(module, "password_verify", arity))
		if err != nil {
			return false, err
		}
		hash, err := atomArg(s, 1, predName(module, "password_verify", arity))
		if err != nil {
			return false, err
		}
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil, nil
	})
}
