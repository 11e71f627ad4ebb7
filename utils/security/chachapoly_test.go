package security

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestEncryptionAndDecryption(t *testing.T) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		t.Fatal(err)
	}
	sharedInfo := make([]byte, 16)
	if _, err := rand.Read(sharedInfo); err != nil {
		t.Fatal(err)
	}

	// 服务端密钥对
	servicePriv, _, err := GenCurve25519Key()
	if err != nil {
		t.Fatal(err)
	}
	// 客户端密钥对
	_, clientPub, err := GenCurve25519Key()
	if err != nil {
		t.Fatal(err)
	}

	chaCha, err := NewChaChaPoly(servicePriv, clientPub, salt, sharedInfo, nil)
	if err != nil {
		t.Fatal(err)
	}

	original := []byte("bg_api_key_1234567890")
	ciphertext, err := chaCha.Encrypt(original)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(ciphertext, original) {
		t.Fatal("ciphertext equals plaintext")
	}

	plaintext, err := chaCha.Decrypt(ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(plaintext, original) {
		t.Fatalf("roundtrip mismatch: %s", plaintext)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	servicePriv, _, err := GenCurve25519Key()
	if err != nil {
		t.Fatal(err)
	}
	_, clientPub, err := GenCurve25519Key()
	if err != nil {
		t.Fatal(err)
	}
	salt := []byte("0123456789abcdef")
	info := []byte("credential-store")

	chaCha, err := NewChaChaPoly(servicePriv, clientPub, salt, info, nil)
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, err := chaCha.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := chaCha.Decrypt(ciphertext); err == nil {
		t.Fatal("tampered ciphertext must not decrypt")
	}
}
