package credential

import (
	"encoding/base64"
	"fmt"

	"smarttrading/internal/model"
	"smarttrading/utils/security"

	"golang.org/x/crypto/chacha20poly1305"
)

// 凭证库：账户表里的凭证是chacha20poly1305密文，用服务端私钥+账户公钥解密
// 密文格式: base64(nonce || ciphertext)，nonce随密文走，密钥材料不出进程
// 解密出来的明文只在ExecutionContext里流转，不落盘不打日志

type Store struct {
	privateKey []byte
	salt       []byte
	sharedInfo []byte
}

func NewStore(privateKeyB64, saltB64, sharedInfoB64 string) (*Store, error) {
	priv, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	info, err := base64.StdEncoding.DecodeString(sharedInfoB64)
	if err != nil {
		return nil, fmt.Errorf("decode shared info: %w", err)
	}
	return &Store{privateKey: priv, salt: salt, sharedInfo: info}, nil
}

// Decrypt 解出账户的交易所凭证
func (s *Store) Decrypt(account model.Account) (model.Credential, error) {
	pub, err := base64.StdEncoding.DecodeString(account.PublicKey)
	if err != nil {
		return model.Credential{}, fmt.Errorf("decode public key: %w", err)
	}

	apiKey, err := s.decryptField(pub, account.ApiKeyEnc)
	if err != nil {
		return model.Credential{}, fmt.Errorf("decrypt api key: %w", err)
	}
	secret, err := s.decryptField(pub, account.SecretKeyEnc)
	if err != nil {
		return model.Credential{}, fmt.Errorf("decrypt secret key: %w", err)
	}
	passphrase, err := s.decryptField(pub, account.PassphraseEnc)
	if err != nil {
		return model.Credential{}, fmt.Errorf("decrypt passphrase: %w", err)
	}

	return model.Credential{ApiKey: apiKey, SecretKey: secret, Passphrase: passphrase}, nil
}

// Seal 加密单个凭证字段，账户录入侧使用
func (s *Store) Seal(plain string, receiverPubB64 string) (string, error) {
	pub, err := base64.StdEncoding.DecodeString(receiverPubB64)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	cc, err := security.NewChaChaPoly(s.privateKey, pub, s.salt, s.sharedInfo, nil)
	if err != nil {
		return "", err
	}
	ciphertext, err := cc.Encrypt([]byte(plain))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(append(cc.Nonce, ciphertext...)), nil
}

func (s *Store) decryptField(receiverPub []byte, enc string) (string, error) {
	if enc == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", err
	}
	if len(raw) <= chacha20poly1305.NonceSize {
		return "", fmt.Errorf("ciphertext too short: %d bytes", len(raw))
	}
	nonce, body := raw[:chacha20poly1305.NonceSize], raw[chacha20poly1305.NonceSize:]

	cc, err := security.NewChaChaPoly(s.privateKey, receiverPub, s.salt, s.sharedInfo, nonce)
	if err != nil {
		return "", err
	}
	plain, err := cc.Decrypt(body)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
