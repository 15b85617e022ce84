// Package encoding negotiates between JSON and MessagePack on the API
// surface. Clients that stream many trainset examples prefer msgpack
// for the smaller payloads.
package encoding

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const ContentTypeMsgpack = "application/msgpack"
const ContentTypeJSON = "application/json"

// NegotiateContentType checks the Accept header and returns the
// preferred response content type. JSON is the default.
func NegotiateContentType(r *http.Request) string {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, ContentTypeMsgpack) {
		return ContentTypeMsgpack
	}
	return ContentTypeJSON
}

// Write encodes data in the negotiated content type
func Write(w http.ResponseWriter, r *http.Request, status int, data interface{}) error {
	if NegotiateContentType(r) == ContentTypeMsgpack {
		return WriteMsgpack(w, status, data)
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteMsgpack writes a MessagePack response with the given status code
func WriteMsgpack(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", ContentTypeMsgpack)
	w.WriteHeader(status)
	return msgpack.NewEncoder(w).Encode(data)
}

// Read decodes a request body according to its Content-Type header
func Read(r *http.Request, target interface{}) error {
	if strings.Contains(r.Header.Get("Content-Type"), ContentTypeMsgpack) {
		return msgpack.NewDecoder(r.Body).Decode(target)
	}
	return json.NewDecoder(r.Body).Decode(target)
}
