package credential

import (
	"encoding/base64"
	"testing"

	"smarttrading/internal/model"
	"smarttrading/utils/security"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	servicePriv, _, err := security.GenCurve25519Key()
	if err != nil {
		t.Fatal(err)
	}
	_, clientPub, err := security.GenCurve25519Key()
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewStore(
		base64.StdEncoding.EncodeToString(servicePriv),
		base64.StdEncoding.EncodeToString([]byte("0123456789abcdef")),
		base64.StdEncoding.EncodeToString([]byte("credential-store")),
	)
	if err != nil {
		t.Fatal(err)
	}
	return store, base64.StdEncoding.EncodeToString(clientPub)
}

func TestSealDecryptRoundtrip(t *testing.T) {
	store, clientPub := newTestStore(t)

	seal := func(plain string) string {
		enc, err := store.Seal(plain, clientPub)
		if err != nil {
			t.Fatal(err)
		}
		return enc
	}

	account := model.Account{
		AccountID:     "acct-1",
		PublicKey:     clientPub,
		ApiKeyEnc:     seal("bg-api-key"),
		SecretKeyEnc:  seal("bg-secret"),
		PassphraseEnc: seal("bg-pass"),
	}

	cred, err := store.Decrypt(account)
	if err != nil {
		t.Fatal(err)
	}
	if cred.ApiKey != "bg-api-key" || cred.SecretKey != "bg-secret" || cred.Passphrase != "bg-pass" {
		t.Errorf("credential mismatch: %s", cred.Redacted())
	}
}

func TestSealProducesUniqueCiphertexts(t *testing.T) {
	store, clientPub := newTestStore(t)
	a, err := store.Seal("same-secret", clientPub)
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Seal("same-secret", clientPub)
	if err != nil {
		t.Fatal(err)
	}
	// 每次加密的nonce不同，密文不能相同
	if a == b {
		t.Error("two seals of the same plaintext must differ")
	}
}

func TestDecryptEmptyFields(t *testing.T) {
	store, clientPub := newTestStore(t)
	account := model.Account{PublicKey: clientPub}
	cred, err := store.Decrypt(account)
	if err != nil {
		t.Fatal(err)
	}
	if cred.ApiKey != "" || cred.SecretKey != "" {
		t.Error("empty encrypted fields must decrypt to empty strings")
	}
}

func TestDecryptGarbage(t *testing.T) {
	store, clientPub := newTestStore(t)
	account := model.Account{
		PublicKey: clientPub,
		ApiKeyEnc: base64.StdEncoding.EncodeToString([]byte("short")),
	}
	if _, err := store.Decrypt(account); err == nil {
		t.Error("truncated ciphertext must fail")
	}
}
