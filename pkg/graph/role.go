package graph

import "strconv"

// Role はグラフ内でのノードの役割です。ノードIDは役割（とキャラクタースロット）から一意に決まります。
type Role int

const (
	RoleCheckpoint Role = iota
	RoleLoRA
	RolePositivePrompt
	RoleNegativePrompt
	RoleLatent
	RoleAdapterModel
	RoleVisionEncoder
	RoleFaceDetector
	RoleSampler
	RoleDecode
	RoleSave

	// キャラクターごとの役割
	RoleReference
	RoleMask
	RoleMaskConvert
	RoleConditioning
)

var sharedIDs = map[Role]int{
	RoleCheckpoint:     1,
	RolePositivePrompt: 2,
	RoleNegativePrompt: 3,
	RoleLatent:         4,
	RoleLoRA:           5,
	RoleAdapterModel:   10,
	RoleVisionEncoder:  11,
	RoleFaceDetector:   12,
	RoleSampler:        35,
	RoleDecode:         36,
	RoleSave:           37,
}

var slotBase = map[Role]int{
	RoleReference:    50,
	RoleMask:         60,
	RoleMaskConvert:  70,
	RoleConditioning: 80,
}

var roleNames = [...]string{
	"checkpoint", "lora", "positive-prompt", "negative-prompt", "latent",
	"adapter-model", "vision-encoder", "face-detector", "sampler", "decode", "save",
	"reference", "mask", "mask-convert", "conditioning",
}

// PerCharacter はキャラクターごとに1つずつ生成される役割かどうかを返します。
func (r Role) PerCharacter() bool {
	_, ok := slotBase[r]
	return ok
}

// NodeID は役割とスロットからノードIDを返します。共有の役割では slot は無視されます。
func (r Role) NodeID(slot int) string {
	if base, ok := slotBase[r]; ok {
		return strconv.Itoa(base + slot)
	}
	return strconv.Itoa(sharedIDs[r])
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleNames[r]
}
