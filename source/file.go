package source

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-trainer/core"
)

// Fixture 是离线样例数据文件的内容：
//
//	{"items": [{"item_id": "1", "genres": ["Sci-Fi"], "description": "..."}],
//	 "interactions": [{"user_id": "u1", "item_id": "1", "rating": 4.5}]}
type Fixture struct {
	Items        []core.ItemFeature    `json:"items"`
	Interactions []core.RawInteraction `json:"interactions"`
}

// LoadFixture 读取 JSON 样例文件，返回内存实现的两个 Reader。
// interactions 为空时 dataset.Builder 会基于 items 合成数据。
func LoadFixture(path string) (*MemoryInteractionReader, *MemoryCatalogReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, core.NewDomainError(core.ModuleSource, core.ErrorCodeInvalidInput,
			fmt.Sprintf("source: parse fixture %s: %v", path, err))
	}
	return NewMemoryInteractionReader(f.Interactions...), NewMemoryCatalogReader(f.Items...), nil
}
