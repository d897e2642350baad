package model

// All 返回需要自动迁移的全部模型，顺序即建表顺序
func All() []interface{} {
	return []interface{}{
		&User{},
		&Channel{},
		&Message{},
		&Thread{},
		&Reaction{},
		&UserBookmark{},
	}
}
