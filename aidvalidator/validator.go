// Package aidvalidator implements the credential validator (C11) and its
// private-key cache (C10): given an opaque AIdCredential and an expected
// realm, it resolves the signing key (from cache, or KS on miss), decrypts
// the claims, and checks expiry/realm.
package aidvalidator

import (
	"context"
	"fmt"
	"time"

	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/claims"
	"github.com/actor-rtc/actrix-core/crypto"
	"github.com/actor-rtc/actrix-core/keycache"
	"github.com/actor-rtc/actrix-core/ksclient"
)

// Credential is the validator's input: the opaque token a client presented.
type Credential struct {
	TokenKeyID     uint32
	EncryptedToken []byte
}

// Validator is a process-wide singleton; construct exactly once with New and
// share the pointer across request handlers.
type Validator struct {
	ks    *ksclient.Client
	cache *keycache.PrivateKeyCache

	nowFn func() time.Time
}

// New constructs a Validator. ks and cache must both be non-nil.
func New(ks *ksclient.Client, cache *keycache.PrivateKeyCache) *Validator {
	return &Validator{ks: ks, cache: cache, nowFn: time.Now}
}

func (v *Validator) now() time.Time {
	if v.nowFn != nil {
		return v.nowFn()
	}
	return time.Now()
}

// Check implements check(credential, expected_realm) per §4.8's 5-step
// algorithm, returning the decrypted claims and the key ID used.
func (v *Validator) Check(ctx context.Context, cred Credential, expectedRealm uint32) (claims.IdentityClaims, uint32, error) {
	sk, err := v.resolveSecretKey(ctx, cred.TokenKeyID)
	if err != nil {
		return claims.IdentityClaims{}, 0, err
	}

	plaintext, err := crypto.EciesDecrypt(sk, cred.EncryptedToken)
	if err != nil {
		return claims.IdentityClaims{}, 0, aiderr.Wrap(aiderr.KindDecryptionFailed, "decrypt credential", err)
	}

	idClaims, err := claims.Unmarshal(plaintext)
	if err != nil {
		return claims.IdentityClaims{}, 0, aiderr.Wrap(aiderr.KindDecryptionFailed, "parse decrypted claims", err)
	}

	if idClaims.IsExpired(v.now()) {
		return claims.IdentityClaims{}, 0, aiderr.New(aiderr.KindExpired, "credential expired")
	}
	if idClaims.RealmID != expectedRealm {
		return claims.IdentityClaims{}, 0, aiderr.Newf(aiderr.KindRealmError, "claims realm %d does not match expected realm %d", idClaims.RealmID, expectedRealm)
	}

	return idClaims, cred.TokenKeyID, nil
}

// resolveSecretKey implements step 1: a cache hit with an unexpired TTL is
// used directly; on miss (or an expired cached row) it fetches from KS and
// REPLACEs the cache entry.
func (v *Validator) resolveSecretKey(ctx context.Context, keyID uint32) (*crypto.PrivateKey, error) {
	row, ok, err := v.cache.Get(ctx, keyID)
	if err != nil {
		return nil, aiderr.Wrap(aiderr.KindInternal, "read private key cache", err)
	}
	if ok {
		return crypto.PrivateKeyFromBytes(row.SecretKey)
	}

	resp, err := v.ks.GetSecretKey(ctx, keyID)
	if err != nil {
		return nil, aiderr.Wrap(aiderr.KindDecryptionFailed, fmt.Sprintf("fetch secret key %d from KS", keyID), err)
	}

	cacheRow := keycache.PrivateKeyRow{KeyID: keyID, SecretKey: resp.SecretKey, CachedAt: v.now().UTC()}
	if resp.ExpiresAt != 0 {
		cacheRow.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	}
	if err := v.cache.Put(ctx, cacheRow); err != nil {
		return nil, aiderr.Wrap(aiderr.KindInternal, "persist fetched secret key", err)
	}

	return crypto.PrivateKeyFromBytes(resp.SecretKey)
}
