package telemetry

import (
	"os"
	"strings"
	"sync"
)

// GenAI semantic convention attribute keys.
// https://github.com/open-telemetry/semantic-conventions/blob/main/docs/gen-ai/gen-ai-spans.md
const (
	AttrOperationName = "gen_ai.operation.name"
	AttrProviderName  = "gen_ai.provider.name"
	// AttrSystem is the pre-stability spelling of the provider attribute.
	AttrSystem = "gen_ai.system"

	AttrRequestModel       = "gen_ai.request.model"
	AttrRequestMaxTokens   = "gen_ai.request.max_tokens"
	AttrRequestTemperature = "gen_ai.request.temperature"

	AttrResponseModel         = "gen_ai.response.model"
	AttrResponseID            = "gen_ai.response.id"
	AttrResponseFinishReasons = "gen_ai.response.finish_reasons"

	AttrUsageInputTokens  = "gen_ai.usage.input_tokens"
	AttrUsageOutputTokens = "gen_ai.usage.output_tokens"
	AttrTokenType         = "gen_ai.token.type"

	// Content attributes are opt-in and gated by the capture policy.
	AttrSystemInstructions  = "gen_ai.system_instructions"
	AttrInputMessages       = "gen_ai.input.messages"
	AttrInputMessagesLength = "gen_ai.input.messages.length"
	AttrOutputMessages      = "gen_ai.output.messages"

	AttrToolName          = "gen_ai.tool.name"
	AttrToolType          = "gen_ai.tool.type"
	AttrToolCallID        = "gen_ai.tool.call.id"
	AttrToolDefinitions   = "gen_ai.tool.definitions"
	AttrToolCallArguments = "gen_ai.tool.call.arguments"
	AttrToolCallResult    = "gen_ai.tool.call.result"

	AttrServerAddress = "server.address"
	AttrServerPort    = "server.port"

	AttrErrorType = "error.type"
)

// Messaging semantic convention attribute keys, used on channel spans.
const (
	AttrMessagingSystem      = "messaging.system"
	AttrMessagingOperation   = "messaging.operation"
	AttrMessagingDestination = "messaging.destination.name"
)

// Application-specific attribute keys live under the agent namespace.
const (
	CustomAttrPrefix = "agent."

	AttrAgentSenderID      = "agent.sender_id"
	AttrAgentSessionKey    = "agent.session.key"
	AttrAgentMessageLength = "agent.message.length"
	AttrAgentHasMedia      = "agent.message.has_media"
)

// Operation name values for gen_ai.operation.name.
const (
	OpChat           = "chat"
	OpExecuteTool    = "execute_tool"
	OpProcessMessage = "process_message"
)

// Token type values for gen_ai.token.type.
const (
	TokenTypeInput  = "input"
	TokenTypeOutput = "output"
	TokenTypeTotal  = "total"
)

// Tool type values for gen_ai.tool.type.
const (
	ToolTypeFunction  = "function"
	ToolTypeExtension = "extension"
	ToolTypeDatastore = "datastore"
)

// schemaKeys is the set of recognized attribute keys. Writes outside this
// set must use the agent. namespace.
var schemaKeys = map[string]bool{
	AttrOperationName:         true,
	AttrProviderName:          true,
	AttrSystem:                true,
	AttrRequestModel:          true,
	AttrRequestMaxTokens:      true,
	AttrRequestTemperature:    true,
	AttrResponseModel:         true,
	AttrResponseID:            true,
	AttrResponseFinishReasons: true,
	AttrUsageInputTokens:      true,
	AttrUsageOutputTokens:     true,
	AttrTokenType:             true,
	AttrSystemInstructions:    true,
	AttrInputMessages:         true,
	AttrInputMessagesLength:   true,
	AttrOutputMessages:        true,
	AttrToolName:              true,
	AttrToolType:              true,
	AttrToolCallID:            true,
	AttrToolDefinitions:       true,
	AttrToolCallArguments:     true,
	AttrToolCallResult:        true,
	AttrServerAddress:         true,
	AttrServerPort:            true,
	AttrErrorType:             true,
	AttrMessagingSystem:       true,
	AttrMessagingOperation:    true,
	AttrMessagingDestination:  true,
}

// IsSchemaKey reports whether key belongs to the recognized attribute schema.
func IsSchemaKey(key string) bool {
	return schemaKeys[key]
}

// IsCustomKey reports whether key is a valid application-custom attribute key.
func IsCustomKey(key string) bool {
	return strings.HasPrefix(key, CustomAttrPrefix) && len(key) > len(CustomAttrPrefix)
}

// ValidAttrKey reports whether key may be written to a span.
func ValidAttrKey(key string) bool {
	return IsSchemaKey(key) || IsCustomKey(key)
}

// latestSemconv reports whether the experimental GenAI attribute generation
// was opted into via OTEL_SEMCONV_STABILITY_OPT_IN.
var latestSemconv = sync.OnceValue(func() bool {
	optIn := os.Getenv("OTEL_SEMCONV_STABILITY_OPT_IN")
	for _, v := range strings.Split(optIn, ",") {
		if strings.TrimSpace(v) == "gen_ai_latest_experimental" {
			return true
		}
	}
	return false
})

// providerAttrKey returns the attribute key used for the provider name.
// The stable generation emits gen_ai.provider.name; the default emits the
// legacy gen_ai.system spelling.
func providerAttrKey() string {
	if latestSemconv() {
		return AttrProviderName
	}
	return AttrSystem
}
