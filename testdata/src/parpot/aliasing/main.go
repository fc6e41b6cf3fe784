package main

type buffer struct {
	data []int
}

func fill(b *buffer) {
	b.data = append(b.data, len(b.data))
}

func sum(b *buffer) int {
	s := 0
	for _, x := range b.data {
		s += x
	}
	return s
}

func scale(p *int) {
	*p *= 2
}

func main() {
	a := &buffer{}
	b := &buffer{}
	fill(a)         // @Site(fillA)
	fill(b)         // @Site(fillB)
	println(sum(a)) // @Site(sumA)
	x := len(a.data)
	scale(&x) // @Site(scale)
	println(x, sum(b))
}
