package diddht

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/pilacorp/go-did-sdk/did"
	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

// Key type codes carried in the t= property of key records.
const (
	keyTypeEdDSA  = 0
	keyTypeES256K = 1
	keyTypeES256  = 2
)

const (
	rootRecordName        = "_did."
	typesRecordName       = "_typ._did."
	controllersRecordName = "_cnt._did."
	alsoKnownAsRecordName = "_aka._did."

	recordTTL = 7200

	// TXT character-strings cap at 255 bytes; longer values are chunked.
	txtChunkSize = 255
)

var (
	keyRecordPattern     = regexp.MustCompile(`^_k(\d+)\._did\.$`)
	serviceRecordPattern = regexp.MustCompile(`^_s(\d+)\._did\.$`)
)

// ErrDanglingReference is returned when the root record references a compact
// id with no corresponding key or service record. This is a hard parse
// error, never a silent omission.
var ErrDanglingReference = errors.New("diddht: root record references missing compact id")

// ErrMissingRootRecord is returned when a packet carries no root record.
var ErrMissingRootRecord = errors.New("diddht: packet has no root record")

// ErrDuplicateReference is returned when the root record names the same
// compact id more than once, which would duplicate document entries.
var ErrDuplicateReference = errors.New("diddht: root record repeats compact id")

// ToDNSPacket maps a DID document (plus optional registered type indices)
// onto the compact DNS wire form: one TXT record per verification method and
// service, and a root record aggregating the relationship lists by compact
// id.
func ToDNSPacket(doc *did.Document, types []int) (*dns.Msg, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	msg := new(dns.Msg)
	msg.Response = true
	msg.Authoritative = true

	compactByRef := make(map[string]string)

	var vmIDs []string
	for i, vm := range doc.VerificationMethod {
		compact := fmt.Sprintf("k%d", i)
		fragment, err := fragmentOf(vm.ID)
		if err != nil {
			return nil, err
		}

		value, err := keyRecordValue(doc, vm, fragment)
		if err != nil {
			return nil, err
		}
		appendTXT(msg, fmt.Sprintf("_k%d._did.", i), value)

		compactByRef[vm.ID] = compact
		compactByRef["#"+fragment] = compact
		vmIDs = append(vmIDs, compact)
	}

	var svcIDs []string
	for i, svc := range doc.Service {
		compact := fmt.Sprintf("s%d", i)
		fragment, err := fragmentOf(svc.ID)
		if err != nil {
			return nil, err
		}

		value := fmt.Sprintf("id=%s;t=%s;se=%s", fragment, svc.Type, strings.Join(svc.ServiceEndpoint, ","))
		appendTXT(msg, fmt.Sprintf("_s%d._did.", i), value)

		svcIDs = append(svcIDs, compact)
	}

	root, err := rootRecordValue(doc, compactByRef, vmIDs, svcIDs)
	if err != nil {
		return nil, err
	}
	appendTXT(msg, rootRecordName, root)

	if len(types) > 0 {
		indices := make([]string, len(types))
		for i, t := range types {
			indices[i] = strconv.Itoa(t)
		}
		appendTXT(msg, typesRecordName, "id="+strings.Join(indices, ","))
	}
	if len(doc.Controller) > 0 {
		appendTXT(msg, controllersRecordName, strings.Join(doc.Controller, ","))
	}
	if len(doc.AlsoKnownAs) > 0 {
		appendTXT(msg, alsoKnownAsRecordName, strings.Join(doc.AlsoKnownAs, ","))
	}

	return msg, nil
}

func keyRecordValue(doc *did.Document, vm did.VerificationMethod, fragment string) (string, error) {
	if vm.PublicKeyJwk == nil {
		return "", fmt.Errorf("diddht: verification method %q has no public key", vm.ID)
	}

	code, raw, err := keyTypeAndBytes(vm.PublicKeyJwk)
	if err != nil {
		return "", fmt.Errorf("diddht: verification method %q: %w", vm.ID, err)
	}

	value := fmt.Sprintf("id=%s;t=%d;k=%s", fragment, code, base64.RawURLEncoding.EncodeToString(raw))
	if vm.Controller != "" && vm.Controller != doc.ID {
		value += ";c=" + vm.Controller
	}

	return value, nil
}

// keyTypeAndBytes maps a public JWK to its record type code and compact raw
// form: 32 raw bytes for Ed25519, the 33-byte compressed point for
// secp256k1.
func keyTypeAndBytes(pub *crypto.JWK) (int, []byte, error) {
	raw, err := crypto.PublicKeyToBytes(pub)
	if err != nil {
		return 0, nil, err
	}

	switch pub.Crv {
	case crypto.CurveEd25519:
		return keyTypeEdDSA, raw, nil
	case crypto.CurveSecp256k1:
		compressed, err := crypto.CompressPublicKey(raw)
		if err != nil {
			return 0, nil, err
		}
		return keyTypeES256K, compressed, nil
	default:
		return 0, nil, fmt.Errorf("%w: curve %q", crypto.ErrUnsupportedAlgorithm, pub.Crv)
	}
}

func rootRecordValue(doc *did.Document, compactByRef map[string]string, vmIDs, svcIDs []string) (string, error) {
	var parts []string
	if len(vmIDs) > 0 {
		parts = append(parts, "vm="+strings.Join(vmIDs, ","))
	}
	if len(svcIDs) > 0 {
		parts = append(parts, "svc="+strings.Join(svcIDs, ","))
	}

	for _, rel := range []struct {
		tag  string
		refs []string
	}{
		{"auth", doc.Authentication},
		{"asm", doc.AssertionMethod},
		{"agm", doc.KeyAgreement},
		{"inv", doc.CapabilityInvocation},
		{"del", doc.CapabilityDelegation},
	} {
		if len(rel.refs) == 0 {
			continue
		}
		compacts := make([]string, len(rel.refs))
		for i, ref := range rel.refs {
			compact, ok := compactByRef[ref]
			if !ok {
				return "", fmt.Errorf("diddht: relationship %s references unknown verification method %q", rel.tag, ref)
			}
			compacts[i] = compact
		}
		parts = append(parts, rel.tag+"="+strings.Join(compacts, ","))
	}

	return strings.Join(parts, ";"), nil
}

// FromDNSPacket is the inverse of ToDNSPacket. It runs in two phases: every
// key and service record is indexed by compact id first, and only then is
// the root record resolved against that index, since the root references
// records by compact id regardless of their order in the packet.
func FromDNSPacket(didURI string, msg *dns.Msg) (*did.Document, []int, error) {
	vmByCompact := make(map[string]did.VerificationMethod)
	vmOrder := make(map[string]int)
	svcByCompact := make(map[string]did.Service)

	var (
		rootValue  string
		rootFound  bool
		types      []int
		controller []string
		alsoKnown  []string
	)

	for _, rr := range msg.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		value := strings.Join(txt.Txt, "")
		name := txt.Header().Name

		switch {
		case keyRecordPattern.MatchString(name):
			index, _ := strconv.Atoi(keyRecordPattern.FindStringSubmatch(name)[1])
			vm, err := parseKeyRecord(didURI, value)
			if err != nil {
				return nil, nil, fmt.Errorf("diddht: record %s: %w", name, err)
			}
			compact := fmt.Sprintf("k%d", index)
			vmByCompact[compact] = vm
			vmOrder[compact] = index

		case serviceRecordPattern.MatchString(name):
			index, _ := strconv.Atoi(serviceRecordPattern.FindStringSubmatch(name)[1])
			svc, err := parseServiceRecord(didURI, value)
			if err != nil {
				return nil, nil, fmt.Errorf("diddht: record %s: %w", name, err)
			}
			svcByCompact[fmt.Sprintf("s%d", index)] = svc

		case name == rootRecordName:
			rootValue, rootFound = value, true

		case name == typesRecordName:
			parsed, err := parseTypesRecord(value)
			if err != nil {
				return nil, nil, err
			}
			types = parsed

		case name == controllersRecordName:
			controller = strings.Split(value, ",")

		case name == alsoKnownAsRecordName:
			alsoKnown = strings.Split(value, ",")
		}
	}

	if !rootFound {
		return nil, nil, ErrMissingRootRecord
	}

	doc := did.NewDocument(didURI)
	doc.Controller = controller
	doc.AlsoKnownAs = alsoKnown

	if err := resolveRootRecord(doc, rootValue, vmByCompact, vmOrder, svcByCompact); err != nil {
		return nil, nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}

	return doc, types, nil
}

// resolveRootRecord fills the document's verification methods, services and
// relationship lists from the root record, using the compact-id indexes
// built in phase one.
func resolveRootRecord(doc *did.Document, value string, vmByCompact map[string]did.VerificationMethod, vmOrder map[string]int, svcByCompact map[string]did.Service) error {
	props := parseProperties(value)

	if vms, ok := props["vm"]; ok {
		compacts := strings.Split(vms, ",")
		sort.Slice(compacts, func(i, j int) bool { return vmOrder[compacts[i]] < vmOrder[compacts[j]] })
		seen := make(map[string]bool, len(compacts))
		for _, compact := range compacts {
			vm, ok := vmByCompact[compact]
			if !ok {
				return fmt.Errorf("%w: %q in vm", ErrDanglingReference, compact)
			}
			if seen[compact] {
				return fmt.Errorf("%w: %q in vm", ErrDuplicateReference, compact)
			}
			seen[compact] = true
			doc.VerificationMethod = append(doc.VerificationMethod, vm)
		}
	}

	if svcs, ok := props["svc"]; ok {
		compacts := strings.Split(svcs, ",")
		seen := make(map[string]bool, len(compacts))
		for _, compact := range compacts {
			svc, ok := svcByCompact[compact]
			if !ok {
				return fmt.Errorf("%w: %q in svc", ErrDanglingReference, compact)
			}
			if seen[compact] {
				return fmt.Errorf("%w: %q in svc", ErrDuplicateReference, compact)
			}
			seen[compact] = true
			doc.Service = append(doc.Service, svc)
		}
	}

	for _, rel := range []struct {
		tag     string
		purpose did.Purpose
	}{
		{"auth", did.PurposeAuthentication},
		{"asm", did.PurposeAssertionMethod},
		{"agm", did.PurposeKeyAgreement},
		{"inv", did.PurposeCapabilityInvocation},
		{"del", did.PurposeCapabilityDelegation},
	} {
		refs, ok := props[rel.tag]
		if !ok || refs == "" {
			continue
		}
		for _, compact := range strings.Split(refs, ",") {
			vm, ok := vmByCompact[compact]
			if !ok {
				return fmt.Errorf("%w: %q in %s", ErrDanglingReference, compact, rel.tag)
			}
			doc.AddPurpose(rel.purpose, vm.ID)
		}
	}

	return nil
}

func parseKeyRecord(didURI, value string) (did.VerificationMethod, error) {
	props := parseProperties(value)

	fragment, ok := props["id"]
	if !ok || fragment == "" {
		return did.VerificationMethod{}, fmt.Errorf("key record has no id property")
	}

	code, err := strconv.Atoi(props["t"])
	if err != nil {
		return did.VerificationMethod{}, fmt.Errorf("key record has invalid type %q", props["t"])
	}

	raw, err := base64.RawURLEncoding.DecodeString(props["k"])
	if err != nil {
		return did.VerificationMethod{}, fmt.Errorf("key record has invalid key material: %w", err)
	}

	var jwk *crypto.JWK
	switch code {
	case keyTypeEdDSA:
		jwk, err = crypto.PublicKeyFromBytes(crypto.AlgorithmEd25519, raw)
	case keyTypeES256K:
		jwk, err = crypto.PublicKeyFromBytes(crypto.AlgorithmSecp256k1, raw)
	default:
		err = fmt.Errorf("%w: key type code %d", crypto.ErrUnsupportedAlgorithm, code)
	}
	if err != nil {
		return did.VerificationMethod{}, err
	}

	kid, err := jwk.Thumbprint()
	if err != nil {
		return did.VerificationMethod{}, err
	}
	jwk.Kid = kid

	controller := props["c"]
	if controller == "" {
		controller = didURI
	}

	return did.VerificationMethod{
		ID:           didURI + "#" + fragment,
		Type:         verificationMethodType,
		Controller:   controller,
		PublicKeyJwk: jwk,
	}, nil
}

func parseServiceRecord(didURI, value string) (did.Service, error) {
	props := parseProperties(value)

	fragment, ok := props["id"]
	if !ok || fragment == "" {
		return did.Service{}, fmt.Errorf("service record has no id property")
	}
	if props["t"] == "" {
		return did.Service{}, fmt.Errorf("service record has no type property")
	}
	if props["se"] == "" {
		return did.Service{}, fmt.Errorf("service record has no endpoint property")
	}

	return did.Service{
		ID:              didURI + "#" + fragment,
		Type:            props["t"],
		ServiceEndpoint: did.Endpoint(strings.Split(props["se"], ",")),
	}, nil
}

func parseTypesRecord(value string) ([]int, error) {
	props := parseProperties(value)

	var types []int
	for _, s := range strings.Split(props["id"], ",") {
		if s == "" {
			continue
		}
		t, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("diddht: invalid type index %q", s)
		}
		types = append(types, t)
	}

	return types, nil
}

// parseProperties splits "k1=v1;k2=v2" record values. Values may contain
// '=' (base64url padding never occurs, but endpoint URIs may).
func parseProperties(value string) map[string]string {
	props := make(map[string]string)
	for _, pair := range strings.Split(value, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		props[k] = v
	}

	return props
}

func fragmentOf(id string) (string, error) {
	_, fragment, ok := strings.Cut(id, "#")
	if !ok || fragment == "" {
		return "", fmt.Errorf("diddht: id %q has no fragment", id)
	}

	return fragment, nil
}

// appendTXT adds a TXT record, chunking the value to the 255-byte
// character-string limit.
func appendTXT(msg *dns.Msg, name, value string) {
	var chunks []string
	for len(value) > txtChunkSize {
		chunks = append(chunks, value[:txtChunkSize])
		value = value[txtChunkSize:]
	}
	chunks = append(chunks, value)

	msg.Answer = append(msg.Answer, &dns.TXT{
		Hdr: dns.RR_Header{
			Name:   name,
			Rrtype: dns.TypeTXT,
			Class:  dns.ClassINET,
			Ttl:    recordTTL,
		},
		Txt: chunks,
	})
}
