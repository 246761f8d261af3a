package query

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer 基于 tiktoken 的 token 计数器
// 处理接口用它统计替换后查询的 token 数
type Tokenizer struct {
	model    string
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// modelEncodings 将模型名称前缀映射到 tiktoken 编码
// 按长度降序排列，保证 gpt-4o 优先于 gpt-4 匹配
var modelEncodings = []struct {
	prefix   string
	encoding string
}{
	{"gpt-4o-mini", "o200k_base"},
	{"gpt-4o", "o200k_base"},
	{"gpt-4-turbo", "cl100k_base"},
	{"gpt-4", "cl100k_base"},
	{"gpt-3.5-turbo", "cl100k_base"},
}

// NewTokenizer 为给定模型创建 token 计数器
// 未知模型回退到 cl100k_base 编码
func NewTokenizer(model string) *Tokenizer {
	encoding := "cl100k_base"
	for _, m := range modelEncodings {
		if strings.HasPrefix(model, m.prefix) {
			encoding = m.encoding
			break
		}
	}

	return &Tokenizer{
		model:    model,
		encoding: encoding,
	}
}

// init 延迟初始化 tiktoken 编码（首次使用时可能下载数据）
func (t *Tokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

// CountTokens 统计文本的 token 数
func (t *Tokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Model 返回计数器绑定的模型名称
func (t *Tokenizer) Model() string {
	return t.model
}

// Name 返回计数器标识
func (t *Tokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}
