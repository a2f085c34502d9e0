package record

// Fields are the caller-supplied parts of a record.
type Fields struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Tags  []string `json:"tags"`
}

// Record is one stored entity. ID is assigned by the store.
type Record struct {
	ID int64 `json:"id"`
	Fields
}

// Collection is the full persisted state of one schema.
type Collection struct {
	Records []Record
	NextID  int64
}

// NewCollection returns an empty collection whose counter starts at 1.
func NewCollection() *Collection {
	return &Collection{Records: []Record{}, NextID: 1}
}

func (c *Collection) indexOf(id int64) int {
	for i, r := range c.Records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// normalized returns a copy of f with a non-nil tag slice owned by the caller.
func (f Fields) normalized() Fields {
	tags := make([]string, len(f.Tags))
	copy(tags, f.Tags)
	f.Tags = tags
	return f
}
