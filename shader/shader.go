// Package shader holds the fixed set of shader sources the renderer uses.
//
// Sources are written in the WebGL2 dialect (#version 300 es) and translated
// for the running backend at compile time. Any of them can be replaced by a
// file of the same name in an asset directory.
package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Asset names. They double as file names in an override directory.
const (
	PassthroughVert     = "passthrough.vert"
	PassthroughFrag     = "passthrough.frag"
	ColorCorrectionFrag = "color_correction.frag"
	GreyscaleFrag       = "greyscale.frag"
	BlurFrag            = "blur.frag"
	SceneVert           = "scene.vert"
	BlinnPhongFrag      = "blinn_phong.frag"
	SkyFrag             = "sky.frag"
)

// ─────────────────────────────── Post-processing ───────────────────────────────

const passthroughVert = `#version 300 es
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const passthroughFrag = `#version 300 es
precision mediump float;
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_Tex;
void main() { fragColor = texture(u_Tex, frag_uv); }
`

// The lookup is remapped so 0 and 1 land on the centers of the outer texels.
const colorCorrectionFrag = `#version 300 es
precision highp float;
precision highp sampler3D;
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_Tex;
uniform sampler3D u_Lut;
void main() {
    vec4 source = texture(u_Tex, frag_uv);
    float size = float(textureSize(u_Lut, 0).x);
    vec3 coord = source.rgb * ((size - 1.0) / size) + 0.5 / size;
    fragColor = vec4(texture(u_Lut, coord).rgb, source.a);
}
`

const greyscaleFrag = `#version 300 es
precision mediump float;
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_Tex;
void main() {
    vec4 source = texture(u_Tex, frag_uv);
    float luma = dot(source.rgb, vec3(0.2126, 0.7152, 0.0722));
    fragColor = vec4(vec3(luma), source.a);
}
`

// One direction of a separable 9-tap Gaussian. u_Direction is (1,0) or (0,1).
const blurFrag = `#version 300 es
precision highp float;
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_Tex;
uniform vec2 u_Direction;
const float weight[5] = float[](0.227027, 0.1945946, 0.1216216, 0.054054, 0.016216);
void main() {
    vec2 texel = u_Direction / vec2(textureSize(u_Tex, 0));
    vec4 result = texture(u_Tex, frag_uv) * weight[0];
    for (int i = 1; i < 5; ++i) {
        result += texture(u_Tex, frag_uv + texel * float(i)) * weight[i];
        result += texture(u_Tex, frag_uv - texel * float(i)) * weight[i];
    }
    fragColor = result;
}
`

// ──────────────────────────────────── Scene ────────────────────────────────────

const sceneVert = `#version 300 es
layout (location = 0) in vec3 in_pos;
layout (location = 1) in vec3 in_normal;
layout (location = 2) in vec2 in_uv;
out vec3 v_WorldPos;
out vec3 v_Normal;
out vec2 v_UV;
uniform mat4 u_ModelViewProjection;
uniform mat4 u_Model;
uniform mat3 u_NormalMatrix;
void main() {
    v_WorldPos = (u_Model * vec4(in_pos, 1.0)).xyz;
    v_Normal = u_NormalMatrix * in_normal;
    v_UV = in_uv;
    gl_Position = u_ModelViewProjection * vec4(in_pos, 1.0);
}
`

const blinnPhongFrag = `#version 300 es
precision highp float;
in vec3 v_WorldPos;
in vec3 v_Normal;
in vec2 v_UV;
out vec4 fragColor;

uniform vec3  u_CamPos;
uniform vec3  u_LightPos;
uniform vec3  u_LightCol;
uniform float u_AmbientLightStrength;
uniform float u_SpecularLightStrength;
uniform vec3  u_AmbientCol;
uniform float u_AmbientStrength;
uniform float u_LightAttenuationConstant;
uniform float u_LightAttenuationLinear;
uniform float u_LightAttenuationQuadratic;

uniform vec4      u_Color;
uniform float     u_Shininess;
uniform int       u_HasDiffuse;
uniform sampler2D s_Diffuse;

void main() {
    vec3 n = normalize(v_Normal);
    vec3 toLight = u_LightPos - v_WorldPos;
    float dist = length(toLight);
    vec3 l = toLight / dist;
    vec3 v = normalize(u_CamPos - v_WorldPos);
    vec3 h = normalize(l + v);

    float diffuse = max(dot(n, l), 0.0);
    float spec = pow(max(dot(n, h), 0.0), max(u_Shininess, 1.0)) * u_SpecularLightStrength;
    float attenuation = 1.0 / (u_LightAttenuationConstant +
        u_LightAttenuationLinear * dist +
        u_LightAttenuationQuadratic * dist * dist);

    vec3 light = (u_AmbientLightStrength + diffuse + spec) * u_LightCol * attenuation;
    light += u_AmbientCol * u_AmbientStrength;

    vec4 albedo = u_Color;
    if (u_HasDiffuse != 0) {
        albedo *= texture(s_Diffuse, v_UV);
    }
    fragColor = vec4(albedo.rgb * light, albedo.a);
}
`

const skyFrag = `#version 300 es
precision mediump float;
in vec3 v_WorldPos;
out vec4 fragColor;
uniform vec3 u_CamPos;
uniform vec3 u_HorizonCol;
uniform vec3 u_ZenithCol;
void main() {
    vec3 dir = normalize(v_WorldPos - u_CamPos);
    float t = clamp(dir.z * 0.5 + 0.5, 0.0, 1.0);
    fragColor = vec4(mix(u_HorizonCol, u_ZenithCol, t), 1.0);
}
`

var sources = map[string]string{
	PassthroughVert:     passthroughVert,
	PassthroughFrag:     passthroughFrag,
	ColorCorrectionFrag: colorCorrectionFrag,
	GreyscaleFrag:       greyscaleFrag,
	BlurFrag:            blurFrag,
	SceneVert:           sceneVert,
	BlinnPhongFrag:      blinnPhongFrag,
	SkyFrag:             skyFrag,
}

// ────────────────────────────────── Public API ─────────────────────────────────

// Source returns the built-in source of a named asset. It panics on an
// unknown name.
func Source(name string) string {
	src, ok := sources[name]
	if !ok {
		panic(fmt.Sprintf("shader: unknown asset %q", name))
	}
	return src
}

// Names returns every asset name.
func Names() []string {
	return []string{
		PassthroughVert, PassthroughFrag, ColorCorrectionFrag, GreyscaleFrag,
		BlurFrag, SceneVert, BlinnPhongFrag, SkyFrag,
	}
}

// Loader resolves asset names to sources. With an empty Dir it only serves
// the built-in sources.
type Loader struct {
	Dir string
}

// Load returns the source for name, preferring Dir/name when that file exists.
func (l Loader) Load(name string) (string, error) {
	builtin, ok := sources[name]
	if !ok {
		return "", fmt.Errorf("shader: unknown asset %q", name)
	}
	if l.Dir == "" {
		return builtin, nil
	}
	data, err := os.ReadFile(filepath.Join(l.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return builtin, nil
	}
	if err != nil {
		return "", fmt.Errorf("shader: failed to read %s: %w", name, err)
	}
	return string(data), nil
}
