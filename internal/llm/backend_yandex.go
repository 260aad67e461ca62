package llm

import (
	"context"
	"fmt"

	"github.com/Morwran/yagpt"
)

// YandexBackend calls YandexGPT. The IAM token is minted once from the OAuth
// token at startup. Its raw result is the first alternative's text.
type YandexBackend struct {
	ya       yagpt.YaGPTFace
	iamToken string
}

func NewYandex(oauthToken, folderID string) (*YandexBackend, error) {
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to init yagpt: %w", err)
	}
	return &YandexBackend{ya: ya, iamToken: resp.IamToken}, nil
}

func (b *YandexBackend) Name() string { return ProviderYandex }

func (b *YandexBackend) Complete(ctx context.Context, prompt string) (any, error) {
	resp, err := b.ya.CompletionWithCtx(ctx, b.iamToken, []yagpt.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("yagpt completion failed: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return nil, nil
	}
	return resp.Alternatives[0].Message.Content, nil
}

func (b *YandexBackend) Available() bool { return b.iamToken != "" }
