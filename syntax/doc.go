// Package syntax provides SDSL scanning and parsing.
//
// SDSL (the shading language of the effect system) is parsed directly from
// characters by composable parser combinators. A Parser receives a Scanner
// and a diagnostics sink; it either succeeds, returning a node and leaving the
// scanner after the consumed text, or fails and leaves the scanner where it
// found it.
//
// # Usage
//
//	file, diags := syntax.ParseFile(source)
//	if diags.HasErrors() {
//	    fmt.Println(diags.FormatAll(source))
//	}
//
// # Grammar
//
// Top level declarations are shaders, effects, parameter blocks, structs,
// methods and variables:
//
//	shader Lighting : ShaderBase, Transformation
//	{
//	    stream float4 Position : SV_Position;
//	    stream float3 Normal : NORMAL;
//
//	    override stage void VSMain()
//	    {
//	        base.VSMain();
//	        streams.Normal = normalize(streams.Normal);
//	    }
//	};
//
//	effect LitEffect
//	{
//	    using params MaterialKeys;
//	    mixin Lighting;
//	    if (MaterialKeys.UseNormalMap)
//	        mixin compose Normals = NormalFromTexture;
//	    mixin macro LIGHT_COUNT = MaterialKeys.LightCount;
//	};
//
// Print renders any node back to SDSL; parsing the printed text yields a
// structurally identical tree.
package syntax
