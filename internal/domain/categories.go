package domain

// Categories — фиксированный набор категорий, по которым идёт загрузка.
var Categories = []string{"technology", "business", "sports", "health", "entertainment"}

// IsValidCategory проверяет принадлежность категории фиксированному набору.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// PreferenceKeys — допустимые ключи пользовательских предпочтений.
var PreferenceKeys = []string{"author", "source", "category"}

// IsPreferenceKey проверяет допустимость ключа предпочтения.
func IsPreferenceKey(key string) bool {
	for _, k := range PreferenceKeys {
		if k == key {
			return true
		}
	}
	return false
}
