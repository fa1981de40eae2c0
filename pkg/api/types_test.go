package api

import (
	"encoding/json"
	"testing"
)

func TestMessageContentUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MessageContent
		wantErr bool
	}{
		{
			name:  "bare string",
			input: `"hello"`,
			want:  TextContent("hello"),
		},
		{
			name:  "null",
			input: `null`,
			want:  NullContent(),
		},
		{
			name:  "part list",
			input: `[{"type":"text","text":"hi"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AA=="}}]`,
			want: PartsContent([]ContentPart{
				{Type: PartText, Text: "hi"},
				{Type: PartImageURL, ImageURL: &ImageURL{URL: "data:image/png;base64,AA=="}},
			}),
		},
		{
			name:    "object rejected",
			input:   `{"text":"hi"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got MessageContent
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Null != tt.want.Null || got.Text != tt.want.Text || len(got.Parts) != len(tt.want.Parts) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMessageContentRoundTrip(t *testing.T) {
	inputs := []string{
		`"plain"`,
		`null`,
		`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`,
	}
	for _, in := range inputs {
		var c MessageContent
		if err := json.Unmarshal([]byte(in), &c); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		out, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("marshal %s: %v", in, err)
		}
		if string(out) != in {
			t.Errorf("round trip %s -> %s", in, out)
		}
	}
}

func TestJoinedText(t *testing.T) {
	c := PartsContent([]ContentPart{
		{Type: PartText, Text: "one "},
		{Type: PartImageURL, ImageURL: &ImageURL{URL: "https://example.com/i.png"}},
		{Type: PartText, Text: "two"},
	})
	if got := c.JoinedText(); got != "one two" {
		t.Errorf("JoinedText = %q, want %q", got, "one two")
	}
	if got := TextContent("plain").JoinedText(); got != "plain" {
		t.Errorf("JoinedText = %q, want %q", got, "plain")
	}
}

func TestChatMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     ChatMessage
		wantErr bool
	}{
		{
			name: "assistant null content with tool calls",
			msg: ChatMessage{
				Role:    RoleAssistant,
				Content: NullContent(),
				ToolCalls: []ToolCall{
					{ID: "call_1", Type: "function", Function: FunctionCall{Name: "f", Arguments: "{}"}},
				},
			},
		},
		{
			name:    "assistant null content without tool calls",
			msg:     ChatMessage{Role: RoleAssistant, Content: NullContent()},
			wantErr: true,
		},
		{
			name:    "tool message without call id",
			msg:     ChatMessage{Role: RoleTool, Content: TextContent("result")},
			wantErr: true,
		},
		{
			name: "tool message with call id",
			msg:  ChatMessage{Role: RoleTool, ToolCallID: "call_1", Content: TextContent("result")},
		},
		{
			name:    "user null content",
			msg:     ChatMessage{Role: RoleUser, Content: NullContent()},
			wantErr: true,
		},
		{
			name:    "user with tool call id",
			msg:     ChatMessage{Role: RoleUser, Content: TextContent("hi"), ToolCallID: "call_1"},
			wantErr: true,
		},
		{
			name:    "unknown role",
			msg:     ChatMessage{Role: "narrator", Content: TextContent("hi")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatMessageNormalize(t *testing.T) {
	user := ChatMessage{Role: RoleUser, Content: NullContent()}
	user.Normalize()
	if user.Content.Null || user.Content.Text != "" {
		t.Errorf("user content not coerced to empty string: %+v", user.Content)
	}

	asst := ChatMessage{
		Role:      RoleAssistant,
		Content:   NullContent(),
		ToolCalls: []ToolCall{{ID: "call_1", Type: "function"}},
	}
	asst.Normalize()
	if !asst.Content.Null {
		t.Error("assistant tool-call message should keep null content")
	}
}

func TestHasImageContent(t *testing.T) {
	msgs := []ChatMessage{
		{Role: RoleUser, Content: TextContent("hi")},
	}
	if HasImageContent(msgs) {
		t.Error("text-only messages should not report images")
	}

	msgs = append(msgs, ChatMessage{
		Role: RoleUser,
		Content: PartsContent([]ContentPart{
			{Type: PartImageURL, ImageURL: &ImageURL{URL: "https://example.com/x.png"}},
		}),
	})
	if !HasImageContent(msgs) {
		t.Error("image part not detected")
	}
}
