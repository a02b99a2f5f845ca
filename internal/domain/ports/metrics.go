package ports

// AvatarMetrics registra o resultado das operações de avatar
type AvatarMetrics interface {
	ObserveFetch(operation, outcome string)
	ObserveResolve(kind string)
	ObserveSweep(category string, count int)
}
