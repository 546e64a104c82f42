// Package model defines the provider-neutral generation interface plus the
// normalized request/response structures shared by all providers. Concrete
// adapters live in subpackages (openai, anthropic); MockModel covers tests.
package model
