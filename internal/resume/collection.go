package resume

import "sync"

// Collection 是会话内的简历集合：按 ID 去重，保留首次插入顺序。
// 集合保存的是深拷贝，调用方持有的副本（例如编辑草稿）不会反向影响集合。
type Collection struct {
	mu    sync.RWMutex
	items []Resume
	index map[string]int
}

// NewCollection 创建空集合。
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Upsert 按 ID 原位替换已有条目，否则追加到末尾。整个操作在同一把锁内完成。
func (c *Collection) Upsert(r Resume) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pos, ok := c.index[r.ID]; ok {
		c.items[pos] = r.Clone()
		return
	}
	c.index[r.ID] = len(c.items)
	c.items = append(c.items, r.Clone())
}

// FindByID 查找指定 ID 的简历，无副作用。
func (c *Collection) FindByID(id string) (Resume, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.index[id]
	if !ok {
		return Resume{}, false
	}
	return c.items[pos].Clone(), true
}

// List 按集合顺序返回快照。
func (c *Collection) List() []Resume {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Resume, 0, len(c.items))
	for _, r := range c.items {
		out = append(out, r.Clone())
	}
	return out
}

// Len 返回条目数量。
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
