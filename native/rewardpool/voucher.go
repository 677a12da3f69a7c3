package rewardpool

import (
	"encoding/hex"
	"fmt"

	repoCrypto "rewardhub/crypto"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ClaimDomainV1 is the domain string bound into every claim digest. Bumping
// the version invalidates all outstanding signatures.
const ClaimDomainV1 = "REWARDHUB_CLAIM_V1"

// ClaimDigest produces the deterministic digest a signing authority commits
// to. The payload binds the scheme version, chain id and pool id alongside the
// request fields, so a signature cannot be replayed against a different pool,
// chain or scheme revision.
func ClaimDigest(chainID uint64, pool [20]byte, req ClaimRequest) []byte {
	payload := fmt.Sprintf("%s|chain=%d|pool=%s|participant=%s|nonce=%d|kind=%d|token=%s",
		ClaimDomainV1,
		chainID,
		hex.EncodeToString(pool[:]),
		hex.EncodeToString(req.Participant[:]),
		req.Nonce,
		req.Asset.Kind,
		hex.EncodeToString(req.Asset.Token[:]),
	)
	return ethcrypto.Keccak256([]byte(payload))
}

// SignClaim authorizes a claim request with the supplied authority key.
func SignClaim(chainID uint64, pool [20]byte, req ClaimRequest, key *repoCrypto.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("rewardpool: nil signing key")
	}
	sig, err := ethcrypto.Sign(ClaimDigest(chainID, pool, req), key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("rewardpool: sign claim: %w", err)
	}
	return sig, nil
}

// RecoverClaimSigner recovers the address that authorized the claim request.
func RecoverClaimSigner(chainID uint64, pool [20]byte, req ClaimRequest, sig []byte) ([20]byte, error) {
	var signer [20]byte
	pub, err := ethcrypto.SigToPub(ClaimDigest(chainID, pool, req), sig)
	if err != nil {
		return signer, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	copy(signer[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return signer, nil
}
