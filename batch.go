package linden

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// batchKey groups commands that share all render state. Consecutive
// commands with equal keys could be submitted as one draw call.
type batchKey struct {
	blend   BlendMode
	program int32
	texture int32
}

func commandBatchKey(cmd *RenderCommand) batchKey {
	return batchKey{blend: cmd.BlendMode, program: cmd.ProgramID, texture: cmd.TextureID}
}

// countBatches counts runs of consecutive commands with the same batch key.
func countBatches(commands []RenderCommand) int {
	if len(commands) == 0 {
		return 0
	}
	count := 1
	prev := commandBatchKey(&commands[0])
	for i := 1; i < len(commands); i++ {
		cur := commandBatchKey(&commands[i])
		if cur != prev {
			count++
			prev = cur
		}
	}
	return count
}

// submitCommands draws commands onto target in order.
func submitCommands(target *ebiten.Image, commands []RenderCommand) {
	var op ebiten.DrawImageOptions
	var sop ebiten.DrawRectShaderOptions
	for i := range commands {
		cmd := &commands[i]
		if cmd.image == nil {
			continue
		}
		if cmd.shader != nil {
			submitShader(target, cmd, &sop)
			continue
		}
		op.GeoM = commandGeoM(cmd)
		op.ColorScale.Reset()
		op.ColorScale.Scale(cmd.Color.R*cmd.Color.A, cmd.Color.G*cmd.Color.A, cmd.Color.B*cmd.Color.A, cmd.Color.A)
		op.Blend = cmd.BlendMode.EbitenBlend()
		target.DrawImage(cmd.image, &op)
	}
}

// submitShader draws a sprite through its Kage shader with the sprite image
// as the first source.
func submitShader(target *ebiten.Image, cmd *RenderCommand, op *ebiten.DrawRectShaderOptions) {
	b := cmd.image.Bounds()
	op.GeoM = commandGeoM(cmd)
	op.ColorScale.Reset()
	op.ColorScale.Scale(cmd.Color.R*cmd.Color.A, cmd.Color.G*cmd.Color.A, cmd.Color.B*cmd.Color.A, cmd.Color.A)
	op.Blend = cmd.BlendMode.EbitenBlend()
	op.Images[0] = cmd.image
	target.DrawRectShader(b.Dx(), b.Dy(), cmd.shader, op)
	op.Images[0] = nil
}

// commandGeoM converts a command transform into an ebiten.GeoM.
func commandGeoM(cmd *RenderCommand) ebiten.GeoM {
	var m ebiten.GeoM
	m.SetElement(0, 0, float64(cmd.Transform[0]))
	m.SetElement(1, 0, float64(cmd.Transform[1]))
	m.SetElement(0, 1, float64(cmd.Transform[2]))
	m.SetElement(1, 1, float64(cmd.Transform[3]))
	m.SetElement(0, 2, float64(cmd.Transform[4]))
	m.SetElement(1, 2, float64(cmd.Transform[5]))
	return m
}
