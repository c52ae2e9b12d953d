package vaultstore

import "errors"

var (
	ErrVaultNotFound      = errors.New("vault file does not exist")
	ErrVaultExists        = errors.New("vault file already exists")
	ErrVerificationFailed = errors.New("saved vault failed post-write verification")
	ErrFilesystemNotAtomic = errors.New("rename was not atomic on this filesystem")
	ErrSecretNotFound      = errors.New("secret not found")
	ErrSecretExists        = errors.New("secret already exists")
	ErrPolicyNotFound      = errors.New("policy not found")
	ErrPolicyExists        = errors.New("policy already exists")
	ErrInvalidName         = errors.New("name must match ^[a-z0-9][a-z0-9-]*$")
)
