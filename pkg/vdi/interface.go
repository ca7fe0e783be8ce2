package vdi

// Manager is everything the sheepdog wrapper can do with VDIs.
// An empty snapshotID means "no snapshot id".
type Manager interface {
	// qemu-img create sheepdog:<name> <size>
	CreateVolume(name string, size Size) error
	// collie vdi list -r, keyed by name, later lines win
	ListVolumes() (map[string]VolumeRecord, error)
	// same listing without collapsing snapshots that share a name
	ListVolumeRecords() ([]VolumeRecord, error)
	VolumeExists(name string) (bool, error)
	// 卷必须已存在，否则由collie报错
	ResizeVolume(name string, size Size) error

	CreateSnapshot(name, snapshotID string) error
	DeleteVolume(name, snapshotID string) error
	// 从快照克隆出一个独立的新卷
	CloneVolume(sourceName, snapshotID, destName string) error
}
