// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/clausematch/ai"
)

// Provider serves the embedder and the judge from OpenAI-compatible
// endpoints. The two may live on different hosts.
type Provider struct {
	embedder *Embedder
	judge    *Judge
	closed   atomic.Bool
	logger   *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates and normalizes config, then creates the embedder and
// the judge from it.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, fmt.Errorf("embedder %s at %s: %w", config.EmbeddingModel, config.EmbeddingHost, err)
	}
	judge, err := newJudge(config)
	if err != nil {
		return nil, fmt.Errorf("judge %s at %s: %w", config.JudgeModel, config.JudgeHost, err)
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"embeddingModel", config.EmbeddingModel,
		"judgeModel", config.JudgeModel,
		"sameHost", config.EmbeddingHost == config.JudgeHost)

	return &Provider{
		embedder: embedder,
		judge:    judge,
		logger:   logger,
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Judge() ai.Judge {
	return p.judge
}

// Close marks the provider closed. The HTTP clients need no cleanup, so a
// second Close is a no-op.
func (p *Provider) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.logger.Debug("closing provider")
	return nil
}
