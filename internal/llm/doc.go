// Package llm provides chat-completion provider adapters for topic classification.
// It supports an Azure OpenAI deployment and the Doubao (Volcengine Ark) API behind
// a single Provider interface, with a serialized, rate-limited request queue.
package llm
