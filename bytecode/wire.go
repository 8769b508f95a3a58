package bytecode

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ArtifactVersion is the current artifact format version.
// Increment when making incompatible changes to the format.
const ArtifactVersion uint16 = 1

// Magic bytes prefixing every serialized artifact: "SYNB".
var ArtifactMagic = []byte{'S', 'Y', 'N', 'B'}

// Artifact is the on-disk envelope around a compiled unit. The build
// id is freshly stamped on every marshal; the source sum ties the
// artifact to the exact source text it was compiled from.
type Artifact struct {
	Version   uint16   `cbor:"1,keyasint"`
	BuildID   string   `cbor:"2,keyasint"`
	SourceSum [32]byte `cbor:"3,keyasint"`
	Unit      *Unit    `cbor:"4,keyasint"`
}

// cborEncMode encodes with canonical options so the same artifact
// always produces the same bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalUnit wraps a unit in an artifact envelope and serializes it:
// four magic bytes followed by a canonical CBOR payload.
func MarshalUnit(u *Unit, source string) ([]byte, error) {
	a := Artifact{
		Version:   ArtifactVersion,
		BuildID:   uuid.New().String(),
		SourceSum: sha256.Sum256([]byte(source)),
		Unit:      u,
	}
	payload, err := cborEncMode.Marshal(&a)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal artifact: %w", err)
	}
	out := make([]byte, 0, len(ArtifactMagic)+len(payload))
	out = append(out, ArtifactMagic...)
	out = append(out, payload...)
	return out, nil
}

// UnmarshalUnit deserializes an artifact produced by MarshalUnit. The
// decoded unit is validated and its constant pool frozen, so a
// corrupted or truncated artifact is rejected here rather than at
// execution time.
func UnmarshalUnit(data []byte) (*Artifact, error) {
	if len(data) < len(ArtifactMagic) {
		return nil, fmt.Errorf("bytecode: artifact too short: need at least %d bytes, got %d", len(ArtifactMagic), len(data))
	}
	if string(data[:len(ArtifactMagic)]) != string(ArtifactMagic) {
		return nil, fmt.Errorf("bytecode: invalid artifact magic: expected %q, got %q", ArtifactMagic, data[:len(ArtifactMagic)])
	}
	var a Artifact
	if err := cbor.Unmarshal(data[len(ArtifactMagic):], &a); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal artifact: %w", err)
	}
	if a.Version > ArtifactVersion {
		return nil, fmt.Errorf("bytecode: artifact version %d is newer than supported version %d", a.Version, ArtifactVersion)
	}
	if a.Unit == nil {
		return nil, fmt.Errorf("bytecode: artifact has no unit")
	}
	if err := a.Unit.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: artifact failed validation: %w", err)
	}
	a.Unit.Freeze()
	return &a, nil
}

// VerifySource checks that an artifact was built from the given source
// text by recomputing the source hash and comparing it to the declared
// one.
func (a *Artifact) VerifySource(source string) error {
	computed := sha256.Sum256([]byte(source))
	if computed != a.SourceSum {
		return fmt.Errorf("bytecode: source hash mismatch: declared %x, computed %x", a.SourceSum, computed)
	}
	return nil
}
